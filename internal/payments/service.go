package payments

import (
	"context"
	"errors"
	"fmt"

	"worldtour/internal/bookings"
	"worldtour/internal/shared/requestctx"
	"worldtour/pkg/logger"

	"github.com/google/uuid"
)

// BookingLedger is the part of the booking service payments drive
type BookingLedger interface {
	GetBooking(ctx context.Context, rc requestctx.RequestContext, bookingID uuid.UUID) (*bookings.Booking, error)
	AttachPaymentSession(ctx context.Context, bookingID uuid.UUID, sessionID string) error
	GetBookingBySession(ctx context.Context, sessionID string) (*bookings.Booking, error)
	GetBookingForPayment(ctx context.Context, bookingID uuid.UUID) (*bookings.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID uuid.UUID, paymentReference string) (*bookings.Booking, error)
	FailPayment(ctx context.Context, bookingID uuid.UUID, reason string) (*bookings.Booking, error)
}

// CheckoutResponse points the client at the hosted payment page
type CheckoutResponse struct {
	BookingID string  `json:"booking_id"`
	SessionID string  `json:"session_id"`
	URL       string  `json:"url"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

type Service struct {
	ledger  BookingLedger
	gateway Gateway
	log     *logger.Logger
}

func NewService(ledger BookingLedger, gateway Gateway) *Service {
	return &Service{ledger: ledger, gateway: gateway, log: logger.GetDefault()}
}

// PaymentResult is a provider outcome for one session. BookingID comes from
// the session metadata and locates the booking when the session is no longer
// the one recorded on it.
type PaymentResult struct {
	SessionID string
	BookingID string
	Succeeded bool
	Reference string
}

// StartCheckout opens a payment session for a pending booking of the caller.
// While the session already recorded on the booking is open it is handed out
// again, so a booking never has two payable sessions. A gateway failure leaves
// the booking pending so the client can retry.
func (s *Service) StartCheckout(ctx context.Context, rc requestctx.RequestContext, bookingID uuid.UUID) (*CheckoutResponse, error) {
	booking, err := s.ledger.GetBooking(ctx, rc, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != bookings.StatusPending {
		return nil, fmt.Errorf("%w: only pending bookings can be paid", bookings.ErrInvalidStateTransition)
	}

	previous := ""
	if booking.PaymentSessionID != nil {
		previous = *booking.PaymentSessionID
	}

	if previous != "" {
		existing, err := s.gateway.GetPaymentSession(ctx, previous)
		if err != nil {
			s.log.ErrorWithContext(ctx, "failed to look up payment session", err, map[string]interface{}{
				"booking_id": bookingID.String(),
				"session_id": previous,
			})
			return nil, wrapGatewayError(err)
		}
		if existing.Open {
			s.log.Info("Payment session reused", "booking_id", booking.ID.String(), "session_id", existing.ID)
			return newCheckoutResponse(booking, existing), nil
		}
	}

	session, err := s.gateway.CreatePaymentSession(ctx, SessionRequest{
		Amount:      booking.TotalPrice,
		Currency:    booking.Currency,
		Description: fmt.Sprintf("%s (%s)", booking.ItemName, booking.BookingRef),
		Metadata: map[string]string{
			"booking_id":  booking.ID.String(),
			"booking_ref": booking.BookingRef,
			"user_id":     booking.UserID.String(),
		},
		ExpiresAt: booking.HoldExpiresAt,
		// concurrent checkouts of the same booking get the same session
		IdempotencyKey: checkoutIdempotencyKey(booking.ID, previous),
	})
	if err != nil {
		s.log.ErrorWithContext(ctx, "failed to create payment session", err, map[string]interface{}{
			"booking_id": bookingID.String(),
		})
		return nil, wrapGatewayError(err)
	}

	if err := s.ledger.AttachPaymentSession(ctx, booking.ID, session.ID); err != nil {
		return nil, err
	}

	s.log.Info("Payment session created", "booking_id", booking.ID.String(), "session_id", session.ID)
	return newCheckoutResponse(booking, session), nil
}

// HandlePaymentResult applies a provider outcome to the booking the session
// belongs to. Redelivered outcomes for a booking already in the matching state
// are accepted. Failures reported for a session the booking has since replaced
// are ignored.
func (s *Service) HandlePaymentResult(ctx context.Context, result PaymentResult) (*bookings.Booking, error) {
	booking, err := s.bookingFor(ctx, result)
	if err != nil {
		return nil, err
	}
	current := booking.PaymentSessionID != nil && *booking.PaymentSessionID == result.SessionID

	if !result.Succeeded {
		if !current {
			s.log.Info("Ignoring failure of superseded payment session",
				"booking_id", booking.ID.String(), "session_id", result.SessionID)
			return booking, nil
		}
		reason := bookings.ReasonPaymentFailed
		if result.Reference != "" {
			reason = result.Reference
		}
		return s.ledger.FailPayment(ctx, booking.ID, reason)
	}

	reference := result.Reference
	if reference == "" {
		reference = result.SessionID
	}
	confirmed, err := s.ledger.ConfirmPayment(ctx, booking.ID, reference)
	if errors.Is(err, bookings.ErrInvalidStateTransition) && booking.Status == bookings.StatusConfirmed {
		if !current {
			s.log.ErrorWithContext(ctx, "second payment for a confirmed booking needs a refund", err, map[string]interface{}{
				"booking_id": booking.ID.String(),
				"session_id": result.SessionID,
				"reference":  reference,
			})
		}
		return booking, nil
	}
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

func (s *Service) bookingFor(ctx context.Context, result PaymentResult) (*bookings.Booking, error) {
	booking, err := s.ledger.GetBookingBySession(ctx, result.SessionID)
	if err == nil || !errors.Is(err, bookings.ErrBookingNotFound) || result.BookingID == "" {
		return booking, err
	}

	id, parseErr := uuid.Parse(result.BookingID)
	if parseErr != nil {
		return nil, err
	}
	return s.ledger.GetBookingForPayment(ctx, id)
}

func newCheckoutResponse(booking *bookings.Booking, session *Session) *CheckoutResponse {
	return &CheckoutResponse{
		BookingID: booking.ID.String(),
		SessionID: session.ID,
		URL:       session.URL,
		Amount:    booking.Total().Major(),
		Currency:  booking.Currency,
	}
}

func checkoutIdempotencyKey(bookingID uuid.UUID, previousSession string) string {
	if previousSession == "" {
		previousSession = "first"
	}
	return "worldtour:checkout:" + bookingID.String() + ":" + previousSession
}

func wrapGatewayError(err error) error {
	if errors.Is(err, ErrPaymentGateway) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPaymentGateway, err)
}
