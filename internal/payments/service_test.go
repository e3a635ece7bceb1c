package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"worldtour/internal/bookings"
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/requestctx"
	"worldtour/internal/users"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	bookings  map[uuid.UUID]*bookings.Booking
	confirmed []string
	failed    []string
}

func newFakeLedger(bs ...*bookings.Booking) *fakeLedger {
	l := &fakeLedger{bookings: map[uuid.UUID]*bookings.Booking{}}
	for _, b := range bs {
		l.bookings[b.ID] = b
	}
	return l
}

func (l *fakeLedger) GetBooking(_ context.Context, rc requestctx.RequestContext, id uuid.UUID) (*bookings.Booking, error) {
	b, ok := l.bookings[id]
	if !ok {
		return nil, bookings.ErrBookingNotFound
	}
	if !rc.CanActOn(b.UserID) {
		return nil, bookings.ErrForbidden
	}
	return b, nil
}

func (l *fakeLedger) AttachPaymentSession(_ context.Context, id uuid.UUID, sessionID string) error {
	l.bookings[id].PaymentSessionID = &sessionID
	return nil
}

func (l *fakeLedger) GetBookingBySession(_ context.Context, sessionID string) (*bookings.Booking, error) {
	for _, b := range l.bookings {
		if b.PaymentSessionID != nil && *b.PaymentSessionID == sessionID {
			return b, nil
		}
	}
	return nil, bookings.ErrBookingNotFound
}

func (l *fakeLedger) GetBookingForPayment(_ context.Context, id uuid.UUID) (*bookings.Booking, error) {
	b, ok := l.bookings[id]
	if !ok {
		return nil, bookings.ErrBookingNotFound
	}
	return b, nil
}

func (l *fakeLedger) ConfirmPayment(_ context.Context, id uuid.UUID, ref string) (*bookings.Booking, error) {
	b := l.bookings[id]
	if b.Status != bookings.StatusPending {
		return nil, bookings.ErrInvalidStateTransition
	}
	b.Status, b.PaymentStatus, b.PaymentReference = bookings.StatusConfirmed, bookings.PaymentPaid, &ref
	l.confirmed = append(l.confirmed, ref)
	return b, nil
}

func (l *fakeLedger) FailPayment(_ context.Context, id uuid.UUID, reason string) (*bookings.Booking, error) {
	b := l.bookings[id]
	if b.Status == bookings.StatusConfirmed {
		return nil, bookings.ErrInvalidStateTransition
	}
	b.Status, b.PaymentStatus = bookings.StatusCancelled, bookings.PaymentFailed
	l.failed = append(l.failed, reason)
	return b, nil
}

type stubGateway struct {
	err     error
	last    SessionRequest
	created int
	closed  map[string]bool
}

func (g *stubGateway) CreatePaymentSession(_ context.Context, req SessionRequest) (*Session, error) {
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	g.created++
	id := fmt.Sprintf("cs_test_%d", g.created)
	return &Session{ID: id, URL: "https://checkout.example/" + id, Open: true}, nil
}

func (g *stubGateway) GetPaymentSession(_ context.Context, sessionID string) (*Session, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &Session{ID: sessionID, URL: "https://checkout.example/" + sessionID, Open: !g.closed[sessionID]}, nil
}

func pendingBooking(owner uuid.UUID) *bookings.Booking {
	return &bookings.Booking{
		ID:            uuid.New(),
		BookingRef:    "WT-20260501-QWERTY",
		UserID:        owner,
		ItemName:      "Lisbon",
		TotalPrice:    150000,
		Currency:      "EUR",
		Status:        bookings.StatusPending,
		PaymentStatus: bookings.PaymentPending,
	}
}

func TestStartCheckout(t *testing.T) {
	owner := requestctx.RequestContext{UserID: uuid.New(), Role: users.RoleUser}
	b := pendingBooking(owner.UserID)
	ledger := newFakeLedger(b)
	gateway := &stubGateway{}

	out, err := NewService(ledger, gateway).StartCheckout(context.Background(), owner, b.ID)
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", out.SessionID)
	assert.Equal(t, 1500.0, out.Amount)
	assert.Equal(t, int64(150000), gateway.last.Amount)
	assert.Equal(t, "EUR", gateway.last.Currency)
	assert.Equal(t, b.ID.String(), gateway.last.Metadata["booking_id"])
	require.NotNil(t, b.PaymentSessionID)
	assert.Equal(t, "cs_test_1", *b.PaymentSessionID)
	assert.Equal(t, "worldtour:checkout:"+b.ID.String()+":first", gateway.last.IdempotencyKey)
}

func TestStartCheckout_ReusesOpenSession(t *testing.T) {
	owner := requestctx.RequestContext{UserID: uuid.New(), Role: users.RoleUser}
	b := pendingBooking(owner.UserID)
	gateway := &stubGateway{}
	svc := NewService(newFakeLedger(b), gateway)

	first, err := svc.StartCheckout(context.Background(), owner, b.ID)
	require.NoError(t, err)
	second, err := svc.StartCheckout(context.Background(), owner, b.ID)
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, 1, gateway.created)
	assert.Equal(t, first.SessionID, *b.PaymentSessionID)
}

func TestStartCheckout_ReplacesClosedSession(t *testing.T) {
	owner := requestctx.RequestContext{UserID: uuid.New(), Role: users.RoleUser}
	b := pendingBooking(owner.UserID)
	gateway := &stubGateway{closed: map[string]bool{}}
	svc := NewService(newFakeLedger(b), gateway)

	first, err := svc.StartCheckout(context.Background(), owner, b.ID)
	require.NoError(t, err)
	gateway.closed[first.SessionID] = true

	second, err := svc.StartCheckout(context.Background(), owner, b.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, second.SessionID, *b.PaymentSessionID)
	assert.Equal(t, "worldtour:checkout:"+b.ID.String()+":"+first.SessionID, gateway.last.IdempotencyKey)
}

func TestStartCheckout_SessionLookupFailureDoesNotOpenAnother(t *testing.T) {
	owner := requestctx.RequestContext{UserID: uuid.New(), Role: users.RoleUser}
	b := pendingBooking(owner.UserID)
	existing := "cs_existing"
	b.PaymentSessionID = &existing
	gateway := &stubGateway{err: errors.New("stripe: 503")}

	_, err := NewService(newFakeLedger(b), gateway).StartCheckout(context.Background(), owner, b.ID)
	assert.ErrorIs(t, err, ErrPaymentGateway)
	assert.Equal(t, 0, gateway.created)
	assert.Equal(t, existing, *b.PaymentSessionID)
}

func TestStartCheckout_GatewayFailureKeepsBookingPending(t *testing.T) {
	owner := requestctx.RequestContext{UserID: uuid.New(), Role: users.RoleUser}
	b := pendingBooking(owner.UserID)
	svc := NewService(newFakeLedger(b), &stubGateway{err: errors.New("stripe: 503")})

	_, err := svc.StartCheckout(context.Background(), owner, b.ID)
	assert.ErrorIs(t, err, ErrPaymentGateway)
	assert.Equal(t, bookings.StatusPending, b.Status)
	assert.Nil(t, b.PaymentSessionID)
}

func TestStartCheckout_Rejections(t *testing.T) {
	owner := requestctx.RequestContext{UserID: uuid.New(), Role: users.RoleUser}
	b := pendingBooking(owner.UserID)
	svc := NewService(newFakeLedger(b), &stubGateway{})

	_, err := svc.StartCheckout(context.Background(), requestctx.RequestContext{UserID: uuid.New()}, b.ID)
	assert.ErrorIs(t, err, bookings.ErrForbidden)

	b.Status = bookings.StatusConfirmed
	_, err = svc.StartCheckout(context.Background(), owner, b.ID)
	assert.ErrorIs(t, err, bookings.ErrInvalidStateTransition)
}

func TestHandlePaymentResult(t *testing.T) {
	session := "cs_test_1"
	b := pendingBooking(uuid.New())
	b.PaymentSessionID = &session
	ledger := newFakeLedger(b)
	svc := NewService(ledger, &stubGateway{})

	paid := PaymentResult{SessionID: session, Succeeded: true, Reference: "pi_1"}
	got, err := svc.HandlePaymentResult(context.Background(), paid)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusConfirmed, got.Status)

	// redelivery is accepted without confirming twice
	got, err = svc.HandlePaymentResult(context.Background(), paid)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusConfirmed, got.Status)
	assert.Equal(t, []string{"pi_1"}, ledger.confirmed)

	_, err = svc.HandlePaymentResult(context.Background(), PaymentResult{SessionID: "cs_unknown", Succeeded: true, Reference: "pi_2"})
	assert.ErrorIs(t, err, bookings.ErrBookingNotFound)
}

func TestHandlePaymentResult_ReplacedSessionStillConfirms(t *testing.T) {
	b := pendingBooking(uuid.New())
	current := "cs_second"
	b.PaymentSessionID = &current
	ledger := newFakeLedger(b)
	svc := NewService(ledger, &stubGateway{})

	got, err := svc.HandlePaymentResult(context.Background(), PaymentResult{
		SessionID: "cs_first",
		BookingID: b.ID.String(),
		Succeeded: true,
		Reference: "pi_first",
	})
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusConfirmed, got.Status)
	assert.Equal(t, []string{"pi_first"}, ledger.confirmed)
}

func TestHandlePaymentResult_ReplacedSessionFailureIgnored(t *testing.T) {
	b := pendingBooking(uuid.New())
	current := "cs_second"
	b.PaymentSessionID = &current
	ledger := newFakeLedger(b)
	svc := NewService(ledger, &stubGateway{})

	got, err := svc.HandlePaymentResult(context.Background(), PaymentResult{
		SessionID: "cs_first",
		BookingID: b.ID.String(),
		Succeeded: false,
	})
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusPending, got.Status)
	assert.Empty(t, ledger.failed)
}

func TestHandlePaymentResult_Failure(t *testing.T) {
	session := "cs_test_2"
	b := pendingBooking(uuid.New())
	b.PaymentSessionID = &session
	ledger := newFakeLedger(b)

	got, err := NewService(ledger, &stubGateway{}).HandlePaymentResult(context.Background(), PaymentResult{SessionID: session})
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCancelled, got.Status)
	assert.Equal(t, []string{bookings.ReasonPaymentFailed}, ledger.failed)
}

func TestSimulatedGateway(t *testing.T) {
	g := NewSimulatedGateway("/api/v1")
	s, err := g.CreatePaymentSession(context.Background(), SessionRequest{Amount: 100, Currency: "USD"})
	require.NoError(t, err)
	assert.Regexp(t, `^sim_[0-9a-f]{32}$`, s.ID)
	assert.Equal(t, "/api/v1/payments/simulated/"+s.ID, s.URL)
	assert.True(t, s.Open)

	again, err := g.GetPaymentSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.URL, again.URL)

	_, err = g.GetPaymentSession(context.Background(), "cs_not_simulated")
	assert.ErrorIs(t, err, ErrPaymentGateway)
}

func TestCheckoutParams(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	holdEnds := now.Add(45 * time.Minute)
	params := checkoutParams(SessionRequest{
		Amount:         12345,
		Currency:       "JPY",
		Description:    "Kyoto ryokan",
		Metadata:       map[string]string{"booking_id": "b1"},
		ExpiresAt:      &holdEnds,
		IdempotencyKey: "worldtour:checkout:b1:first",
	}, config.PaymentsConfig{SuccessURL: "https://ok", CancelURL: "https://cancel"}, now)

	assert.Equal(t, "payment", *params.Mode)
	require.Len(t, params.LineItems, 1)
	item := params.LineItems[0]
	assert.Equal(t, int64(1), *item.Quantity)
	assert.Equal(t, "jpy", *item.PriceData.Currency)
	assert.Equal(t, int64(12345), *item.PriceData.UnitAmount)
	assert.Equal(t, "Kyoto ryokan", *item.PriceData.ProductData.Name)
	assert.Equal(t, "b1", params.Metadata["booking_id"])
	assert.Equal(t, "https://ok", *params.SuccessURL)
	require.NotNil(t, params.ExpiresAt)
	assert.Equal(t, holdEnds.Unix(), *params.ExpiresAt)
	require.NotNil(t, params.IdempotencyKey)
	assert.Equal(t, "worldtour:checkout:b1:first", *params.IdempotencyKey)
}

func TestCheckoutParams_ShortHoldKeepsProviderExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	holdEnds := now.Add(10 * time.Minute)
	params := checkoutParams(SessionRequest{Amount: 100, Currency: "USD", ExpiresAt: &holdEnds},
		config.PaymentsConfig{}, now)

	assert.Nil(t, params.ExpiresAt)
	assert.Nil(t, params.IdempotencyKey)
}
