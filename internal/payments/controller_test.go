package payments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"worldtour/internal/bookings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/tidwall/gjson"
)

const testWebhookSecret = "whsec_test"

func webhookRouter(ledger *fakeLedger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewController(NewService(ledger, &stubGateway{}), testWebhookSecret)
	r := gin.New()
	r.POST("/payments/webhooks/stripe", controller.StripeWebhook)
	r.POST("/payments/simulated/:session_id", controller.SimulatedResult)
	return r
}

func stripeEvent(t *testing.T, eventType string, session map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_" + uuid.NewString(),
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        eventType,
		"data":        map[string]interface{}{"object": session},
	})
	require.NoError(t, err)
	return payload
}

func postSigned(r *gin.Engine, payload []byte, secret string) *httptest.ResponseRecorder {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/payments/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionBooking(session string) *bookings.Booking {
	b := pendingBooking(uuid.New())
	b.PaymentSessionID = &session
	return b
}

func TestStripeWebhook_CompletedConfirms(t *testing.T) {
	b := sessionBooking("cs_live_1")
	ledger := newFakeLedger(b)

	w := postSigned(webhookRouter(ledger), stripeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":             "cs_live_1",
		"object":         "checkout.session",
		"payment_status": "paid",
		"payment_intent": "pi_42",
	}), testWebhookSecret)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, bookings.StatusConfirmed, b.Status)
	assert.Equal(t, []string{"pi_42"}, ledger.confirmed)
}

func TestStripeWebhook_CompletedReplacedSessionConfirmsByMetadata(t *testing.T) {
	b := sessionBooking("cs_live_second")
	ledger := newFakeLedger(b)
	r := webhookRouter(ledger)

	w := postSigned(r, stripeEvent(t, "checkout.session.expired", map[string]interface{}{
		"id":       "cs_live_first",
		"object":   "checkout.session",
		"metadata": map[string]string{"booking_id": b.ID.String()},
	}), testWebhookSecret)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, bookings.StatusPending, b.Status)

	w = postSigned(r, stripeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":             "cs_live_first",
		"object":         "checkout.session",
		"payment_status": "paid",
		"payment_intent": "pi_first",
		"metadata":       map[string]string{"booking_id": b.ID.String()},
	}), testWebhookSecret)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, bookings.StatusConfirmed, b.Status)
	assert.Equal(t, []string{"pi_first"}, ledger.confirmed)
}

func TestStripeWebhook_ExpiredFails(t *testing.T) {
	b := sessionBooking("cs_live_2")
	ledger := newFakeLedger(b)

	w := postSigned(webhookRouter(ledger), stripeEvent(t, "checkout.session.expired", map[string]interface{}{
		"id":     "cs_live_2",
		"object": "checkout.session",
	}), testWebhookSecret)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, bookings.StatusCancelled, b.Status)
}

func TestStripeWebhook_UnpaidCompletionWaits(t *testing.T) {
	b := sessionBooking("cs_live_3")
	ledger := newFakeLedger(b)

	w := postSigned(webhookRouter(ledger), stripeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":             "cs_live_3",
		"object":         "checkout.session",
		"payment_status": "unpaid",
	}), testWebhookSecret)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, bookings.StatusPending, b.Status)
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	b := sessionBooking("cs_live_4")
	ledger := newFakeLedger(b)

	w := postSigned(webhookRouter(ledger), stripeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":             "cs_live_4",
		"payment_status": "paid",
	}), "whsec_wrong")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, bookings.StatusPending, b.Status)
}

func TestSimulatedResult(t *testing.T) {
	b := sessionBooking("sim_abc")
	r := webhookRouter(newFakeLedger(b))

	req := httptest.NewRequest(http.MethodPost, "/payments/simulated/sim_abc", bytes.NewBufferString(`{"succeeded":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", gjson.Get(w.Body.String(), "data.status").String())
	assert.Equal(t, "paid", gjson.Get(w.Body.String(), "data.payment_status").String())

	req = httptest.NewRequest(http.MethodPost, "/payments/simulated/sim_abc", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
