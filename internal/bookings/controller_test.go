package bookings

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"worldtour/internal/catalog"
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = validation.Register(v)
	}
}

func newTestRouter(t *testing.T, userID uuid.UUID, role string) (*gin.Engine, *store) {
	t.Helper()
	st := newStore()
	svc := NewService(st, st, st, st, config.BookingConfig{HoldTTL: time.Minute})
	controller := NewController(svc, NewDocumentRenderer("secret"))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Set("user_role", role)
		c.Next()
	})
	r.POST("/bookings", controller.CreateBooking)
	r.GET("/bookings/:id", controller.GetBooking)
	r.POST("/bookings/:id/cancel", controller.CancelBooking)
	r.GET("/bookings/:id/qr.png", controller.GetQRCode)
	return r, st
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBookingHandler(t *testing.T) {
	r, st := newTestRouter(t, uuid.New(), "USER")
	item := st.addItem(catalog.KindDestination, 15000, 10)

	body := `{"target_kind":"destination","item_id":"` + item.ID.String() + `","start_date":"2026-06-01T00:00:00Z","end_date":"2026-06-06T00:00:00Z","party_size":2}`
	w := doRequest(r, http.MethodPost, "/bookings", body)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := gjson.Parse(w.Body.String())
	assert.Equal(t, "success", res.Get("status").String())
	assert.Equal(t, 1500.0, res.Get("data.total_price").Float())
	assert.Equal(t, "pending", res.Get("data.status").String())
	assert.Equal(t, "USD", res.Get("data.currency").String())
	assert.True(t, res.Get("data.booking_id").Exists())
}

func TestCreateBookingHandler_NoCapacity(t *testing.T) {
	r, st := newTestRouter(t, uuid.New(), "USER")
	item := st.addItem(catalog.KindRoomType, 9000, 1)

	body := `{"target_kind":"room_type","item_id":"` + item.ID.String() + `","start_date":"2026-06-01T00:00:00Z","end_date":"2026-06-03T00:00:00Z","party_size":2}`
	w := doRequest(r, http.MethodPost, "/bookings", body)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NoCapacity", gjson.Get(w.Body.String(), "errors.reason").String())
}

func TestCreateBookingHandler_InvalidBody(t *testing.T) {
	r, _ := newTestRouter(t, uuid.New(), "USER")

	w := doRequest(r, http.MethodPost, "/bookings", `{"target_kind":"castle","item_id":"nope","party_size":1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", gjson.Get(w.Body.String(), "status").String())
}

func TestGetBookingHandler_Errors(t *testing.T) {
	r, st := newTestRouter(t, uuid.New(), "USER")

	w := doRequest(r, http.MethodGet, "/bookings/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/bookings/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	foreign := Booking{ID: uuid.New(), UserID: uuid.New(), Status: StatusPending}
	st.bookings[foreign.ID] = foreign
	w = doRequest(r, http.MethodGet, "/bookings/"+foreign.ID.String(), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodPost, "/bookings/"+foreign.ID.String()+"/cancel", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, StatusPending, st.bookings[foreign.ID].Status)
}

func TestQRCodeHandler_PendingBookingConflicts(t *testing.T) {
	userID := uuid.New()
	r, st := newTestRouter(t, userID, "USER")

	pending := Booking{ID: uuid.New(), UserID: userID, Status: StatusPending}
	st.bookings[pending.ID] = pending
	w := doRequest(r, http.MethodGet, "/bookings/"+pending.ID.String()+"/qr.png", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	confirmed := *confirmedBooking()
	confirmed.UserID = userID
	st.bookings[confirmed.ID] = confirmed
	w = doRequest(r, http.MethodGet, "/bookings/"+confirmed.ID.String()+"/qr.png", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}
