package bookings

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"worldtour/internal/cancellation"
	"worldtour/internal/catalog"
	"worldtour/internal/inventory"
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/database"
	"worldtour/internal/shared/requestctx"
	"worldtour/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidDates           = errors.New("end date must be after start date")
	ErrInvalidPartySize       = errors.New("party size must be positive")
	ErrInvalidTarget          = errors.New("invalid booking target")
	ErrNoCapacity             = errors.New("no capacity left for this booking")
	ErrItemUnavailable        = errors.New("catalog item is not available for booking")
	ErrInvalidStateTransition = errors.New("invalid booking state transition")
	ErrForbidden              = errors.New("not allowed to act on this booking")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrNotConfirmed           = errors.New("booking is not confirmed")
)

// ItemSource loads the catalog item a booking is made against
type ItemSource interface {
	GetForBooking(ctx context.Context, id uuid.UUID) (*catalog.CatalogItem, error)
}

// Notifier delivers booking notices. Calls are made off the request path and
// failures are only logged.
type Notifier interface {
	BookingConfirmed(ctx context.Context, booking Booking) error
	BookingCancelled(ctx context.Context, booking Booking) error
}

// CancellationRecorder prices and records cancellations of paid bookings
type CancellationRecorder interface {
	Assess(ctx context.Context, booking cancellation.BookingInfo, byAdmin bool, now time.Time) (cancellation.Assessment, error)
	Record(ctx context.Context, booking cancellation.BookingInfo, assessment cancellation.Assessment, reason string, cancelledBy uuid.UUID) (*cancellation.Cancellation, error)
}

// CapacityObserver is told about committed changes to an item's available capacity
type CapacityObserver interface {
	CapacityChanged(ctx context.Context, itemID uuid.UUID)
}

// Service interface defines the contract for booking business logic
type Service interface {
	SetNotifier(notifier Notifier)
	SetCancellationRecorder(recorder CancellationRecorder)
	SetIdempotencyGuard(guard IdempotencyGuard)
	SetCapacityObserver(observer CapacityObserver)

	CreateBooking(ctx context.Context, rc requestctx.RequestContext, req CreateBookingRequest) (*Booking, error)
	ConfirmPayment(ctx context.Context, bookingID uuid.UUID, paymentReference string) (*Booking, error)
	FailPayment(ctx context.Context, bookingID uuid.UUID, reason string) (*Booking, error)
	CancelBooking(ctx context.Context, rc requestctx.RequestContext, bookingID uuid.UUID, reason string) (*Booking, error)

	GetBooking(ctx context.Context, rc requestctx.RequestContext, bookingID uuid.UUID) (*Booking, error)
	GetConfirmedBooking(ctx context.Context, rc requestctx.RequestContext, bookingID uuid.UUID) (*Booking, error)
	ListUserBookings(ctx context.Context, rc requestctx.RequestContext, query BookingListQuery) (*BookingListResponse, error)
	ListAllBookings(ctx context.Context, query BookingListQuery) (*BookingListResponse, error)

	// Payment session bookkeeping
	AttachPaymentSession(ctx context.Context, bookingID uuid.UUID, sessionID string) error
	GetBookingBySession(ctx context.Context, sessionID string) (*Booking, error)
	// GetBookingForPayment loads a booking for a provider callback, without an owner check
	GetBookingForPayment(ctx context.Context, bookingID uuid.UUID) (*Booking, error)

	// ExpireStaleHolds fails up to batch pending bookings whose hold lapsed before now
	ExpireStaleHolds(ctx context.Context, now time.Time, batch int) (int, error)
}

// service implements the Service interface
type service struct {
	repo          Repository
	items         ItemSource
	inventory     inventory.Adjuster
	tx            database.Transactor
	notifier      Notifier
	cancellations CancellationRecorder
	idempotency   IdempotencyGuard
	capacity      CapacityObserver
	cfg           config.BookingConfig
	log           *logger.Logger
	now           func() time.Time
}

// NewService creates a new booking service instance
func NewService(repo Repository, items ItemSource, adjuster inventory.Adjuster, tx database.Transactor, cfg config.BookingConfig) Service {
	return &service{
		repo:      repo,
		items:     items,
		inventory: adjuster,
		tx:        tx,
		cfg:       cfg,
		log:       logger.GetDefault(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

func (s *service) SetCancellationRecorder(recorder CancellationRecorder) {
	s.cancellations = recorder
}

func (s *service) SetIdempotencyGuard(guard IdempotencyGuard) {
	s.idempotency = guard
}

func (s *service) SetCapacityObserver(observer CapacityObserver) {
	s.capacity = observer
}

// CreateBooking prices the request, reserves capacity for every member of the
// party and persists a pending booking. Reservation and insert share one
// transaction, so a failed insert leaves capacity untouched.
func (s *service) CreateBooking(ctx context.Context, rc requestctx.RequestContext, req CreateBookingRequest) (*Booking, error) {
	if !rc.Authenticated() {
		return nil, ErrForbidden
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid item id", ErrInvalidTarget)
	}
	target, err := ParseTarget(req.TargetKind, itemID)
	if err != nil {
		return nil, err
	}
	if req.PartySize <= 0 {
		return nil, ErrInvalidPartySize
	}
	if err := validateDates(target.Kind, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	// Step 1: replay a request we have already served
	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" && s.idempotency != nil {
		existing, claimed, err := s.idempotency.Claim(ctx, rc.UserID, key)
		switch {
		case errors.Is(err, ErrRequestInFlight):
			return nil, err
		case err != nil:
			s.log.Warn("idempotency guard unavailable, continuing without it", "error", err.Error())
			key = ""
		case !claimed:
			return s.repo.GetBookingByID(ctx, existing)
		}
	}

	booking, err := s.createBooking(ctx, rc, target, req)
	if key != "" && s.idempotency != nil {
		if err != nil {
			if abandonErr := s.idempotency.Abandon(ctx, rc.UserID, key); abandonErr != nil {
				s.log.Warn("failed to release idempotency key", "error", abandonErr.Error())
			}
		} else if completeErr := s.idempotency.Complete(ctx, rc.UserID, key, booking.ID); completeErr != nil {
			s.log.Warn("failed to store idempotency key", "error", completeErr.Error())
		}
	}
	if err != nil {
		return nil, err
	}

	s.log.LogBookingCreated(ctx, booking.ID.String(), booking.CatalogItemID.String(), booking.UserID.String(), booking.TotalPrice, booking.Currency)
	return booking, nil
}

func (s *service) createBooking(ctx context.Context, rc requestctx.RequestContext, target Target, req CreateBookingRequest) (*Booking, error) {
	// Step 2: load and check the item
	item, err := s.items.GetForBooking(ctx, target.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Kind != target.Kind {
		return nil, fmt.Errorf("%w: item is a %s, not a %s", ErrInvalidTarget, item.Kind, target.Kind)
	}
	// a sold-out item surfaces as ErrNoCapacity from the reservation below
	if !item.Available {
		return nil, ErrItemUnavailable
	}

	start, end := req.StartDate, req.EndDate
	if target.Kind == KindPackage && end == nil {
		e := start.AddDate(0, 0, item.DurationDays)
		end = &e
	}

	// Step 3: price
	breakdown, err := catalog.PriceFor(item, start, end, req.PartySize)
	if err != nil {
		return nil, err
	}

	now := s.now()
	holdExpiresAt := now.Add(s.cfg.HoldTTL)
	booking := &Booking{
		ID:              uuid.New(),
		UserID:          rc.UserID,
		TargetKind:      target.Kind,
		CatalogItemID:   item.ID,
		ItemName:        item.Name,
		PartySize:       req.PartySize,
		Quantity:        breakdown.Quantity,
		UnitPrice:       breakdown.UnitPrice.Amount,
		DiscountPercent: breakdown.DiscountPercent,
		TotalPrice:      breakdown.Total.Amount,
		Currency:        breakdown.Total.Currency,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		HoldExpiresAt:   &holdExpiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if target.Kind == KindFlight {
		booking.DepartureTime = item.DepartureTime
		booking.ArrivalTime = item.ArrivalTime
	} else {
		booking.StartDate = start
		booking.EndDate = end
	}

	booking.BookingRef, err = generateBookingReference(now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking reference: %w", err)
	}

	// Step 4: reserve and persist atomically
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		token, err := s.inventory.Reserve(ctx, item.ID, req.PartySize)
		if err != nil {
			return mapInventoryError(err)
		}
		booking.ReservationToken = token

		if err := s.repo.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.capacityChanged(ctx, booking.CatalogItemID)
	return booking, nil
}

// ConfirmPayment moves a pending booking to confirmed/paid
func (s *service) ConfirmPayment(ctx context.Context, bookingID uuid.UUID, paymentReference string) (*Booking, error) {
	now := s.now()
	changed, err := s.repo.Transition(ctx, bookingID, []Status{StatusPending}, map[string]interface{}{
		"status":            StatusConfirmed,
		"payment_status":    PaymentPaid,
		"payment_reference": paymentReference,
		"confirmed_at":      now,
		"hold_expires_at":   nil,
		"updated_at":        now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}

	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("%w: cannot confirm a %s booking", ErrInvalidStateTransition, booking.Status)
	}

	s.log.LogBookingConfirmed(ctx, bookingID.String(), paymentReference)
	s.notify(ctx, *booking, true)
	return booking, nil
}

// FailPayment cancels a pending booking whose payment did not go through and
// returns its capacity. Failing an already cancelled booking is a no-op.
func (s *service) FailPayment(ctx context.Context, bookingID uuid.UUID, reason string) (*Booking, error) {
	if reason == "" {
		reason = ReasonPaymentFailed
	}
	booking, _, err := s.failPending(ctx, bookingID, reason)
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// failPending reports whether this call performed the transition
func (s *service) failPending(ctx context.Context, bookingID uuid.UUID, reason string) (*Booking, bool, error) {
	var booking *Booking
	changed := false

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetBookingByID(ctx, bookingID)
		if err != nil {
			return err
		}

		switch current.Status {
		case StatusCancelled:
			booking = current
			return nil
		case StatusConfirmed:
			return fmt.Errorf("%w: payment of a confirmed booking cannot fail", ErrInvalidStateTransition)
		}

		now := s.now()
		ok, err := s.repo.Transition(ctx, bookingID, []Status{StatusPending}, map[string]interface{}{
			"status":              StatusCancelled,
			"payment_status":      PaymentFailed,
			"cancelled_at":        now,
			"cancellation_reason": reason,
			"hold_expires_at":     nil,
			"updated_at":          now,
		})
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}
		if ok {
			if err := s.release(ctx, current); err != nil {
				return err
			}
			changed = true
		}

		booking, err = s.repo.GetBookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !ok && booking.Status != StatusCancelled {
			return fmt.Errorf("%w: booking became %s", ErrInvalidStateTransition, booking.Status)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.capacityChanged(ctx, booking.CatalogItemID)
		s.log.LogPaymentFailed(ctx, bookingID.String(), reason)
	}
	return booking, changed, nil
}

// CancelBooking cancels a pending or confirmed booking on behalf of its owner
// or an admin and returns its capacity. Cancelling a paid booking records the
// fee and refund due under the item's cancellation policy.
func (s *service) CancelBooking(ctx context.Context, rc requestctx.RequestContext, bookingID uuid.UUID, reason string) (*Booking, error) {
	var booking *Booking

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetBookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !rc.CanActOn(current.UserID) {
			return ErrForbidden
		}
		if !current.Status.CanBeCancelled() {
			return fmt.Errorf("%w: booking is already %s", ErrInvalidStateTransition, current.Status)
		}

		now := s.now()
		ok, err := s.repo.Transition(ctx, bookingID, []Status{StatusPending, StatusConfirmed}, map[string]interface{}{
			"status":              StatusCancelled,
			"cancelled_at":        now,
			"cancellation_reason": reason,
			"hold_expires_at":     nil,
			"updated_at":          now,
		})
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: booking changed concurrently", ErrInvalidStateTransition)
		}

		if err := s.release(ctx, current); err != nil {
			return err
		}

		if current.PaymentStatus == PaymentPaid && s.cancellations != nil {
			info := cancellation.BookingInfo{
				ID:            current.ID,
				UserID:        current.UserID,
				CatalogItemID: current.CatalogItemID,
				Total:         current.Total(),
				ServiceStart:  current.ServiceStart(),
			}
			assessment, err := s.cancellations.Assess(ctx, info, rc.IsAdmin(), now)
			if err != nil {
				return fmt.Errorf("failed to assess cancellation: %w", err)
			}
			if _, err := s.cancellations.Record(ctx, info, assessment, reason, rc.UserID); err != nil {
				return err
			}
		}

		booking, err = s.repo.GetBookingByID(ctx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.capacityChanged(ctx, booking.CatalogItemID)
	s.log.LogBookingCancelled(ctx, bookingID.String(), rc.UserID.String(), reason)
	s.notify(ctx, *booking, false)
	return booking, nil
}

func (s *service) GetBooking(ctx context.Context, rc requestctx.RequestContext, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !rc.CanActOn(booking.UserID) {
		return nil, ErrForbidden
	}
	return booking, nil
}

// GetConfirmedBooking is GetBooking restricted to confirmed bookings, for documents
func (s *service) GetConfirmedBooking(ctx context.Context, rc requestctx.RequestContext, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.GetBooking(ctx, rc, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != StatusConfirmed {
		return nil, ErrNotConfirmed
	}
	return booking, nil
}

func (s *service) ListUserBookings(ctx context.Context, rc requestctx.RequestContext, query BookingListQuery) (*BookingListResponse, error) {
	if !rc.Authenticated() {
		return nil, ErrForbidden
	}
	bookings, total, err := s.repo.GetUserBookings(ctx, rc.UserID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return newListResponse(bookings, total, query.Page, query.Limit), nil
}

func (s *service) ListAllBookings(ctx context.Context, query BookingListQuery) (*BookingListResponse, error) {
	bookings, total, err := s.repo.GetAllBookings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return newListResponse(bookings, total, query.Page, query.Limit), nil
}

func (s *service) AttachPaymentSession(ctx context.Context, bookingID uuid.UUID, sessionID string) error {
	ok, err := s.repo.Transition(ctx, bookingID, []Status{StatusPending}, map[string]interface{}{
		"payment_session_id": sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to record payment session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: only pending bookings can be paid", ErrInvalidStateTransition)
	}
	return nil
}

func (s *service) GetBookingBySession(ctx context.Context, sessionID string) (*Booking, error) {
	return s.repo.GetBookingBySessionID(ctx, sessionID)
}

func (s *service) GetBookingForPayment(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return s.repo.GetBookingByID(ctx, bookingID)
}

func (s *service) ExpireStaleHolds(ctx context.Context, now time.Time, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}

	stale, err := s.repo.FindExpiredHolds(ctx, now, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired holds: %w", err)
	}

	expired := 0
	for _, b := range stale {
		_, changed, err := s.failPending(ctx, b.ID, ReasonHoldExpired)
		if err != nil {
			// confirmed in the meantime; nothing to expire
			if errors.Is(err, ErrInvalidStateTransition) {
				continue
			}
			s.log.ErrorWithContext(ctx, "failed to expire booking hold", err, map[string]interface{}{
				"booking_id": b.ID.String(),
			})
			continue
		}
		if changed {
			expired++
		}
	}

	if expired > 0 {
		s.log.LogHoldsExpired(ctx, expired)
	}
	return expired, nil
}

func (s *service) release(ctx context.Context, booking *Booking) error {
	if booking.ReservationToken == uuid.Nil {
		return nil
	}
	err := s.inventory.Release(ctx, booking.ReservationToken)
	if errors.Is(err, inventory.ErrUnknownReservation) {
		s.log.Warn("booking has no matching reservation", "booking_id", booking.ID.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to release capacity: %w", err)
	}
	return nil
}

func (s *service) capacityChanged(ctx context.Context, itemID uuid.UUID) {
	if s.capacity != nil {
		s.capacity.CapacityChanged(ctx, itemID)
	}
}

func (s *service) notify(ctx context.Context, booking Booking, confirmed bool) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		var err error
		if confirmed {
			err = s.notifier.BookingConfirmed(ctx, booking)
		} else {
			err = s.notifier.BookingCancelled(ctx, booking)
		}
		if err != nil {
			s.log.ErrorWithContext(ctx, "failed to send booking notification", err, map[string]interface{}{
				"booking_id": booking.ID.String(),
			})
		}
	}()
}

func mapInventoryError(err error) error {
	switch {
	case errors.Is(err, inventory.ErrInsufficientCapacity):
		return fmt.Errorf("%w: %w", ErrNoCapacity, err)
	case errors.Is(err, inventory.ErrItemUnavailable):
		return ErrItemUnavailable
	case errors.Is(err, inventory.ErrItemNotFound):
		return catalog.ErrItemNotFound
	}
	return err
}

// validateDates checks the range a booking of kind needs. Flights take their
// times from the item; packages need a start and derive the end.
func validateDates(kind Kind, start, end *time.Time) error {
	switch kind {
	case KindFlight:
		return nil
	case KindPackage:
		if start == nil {
			return fmt.Errorf("%w: start_date is required", ErrInvalidDates)
		}
		if end != nil && !end.After(*start) {
			return ErrInvalidDates
		}
		return nil
	}

	if start == nil || end == nil {
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidDates)
	}
	if !end.After(*start) {
		return ErrInvalidDates
	}
	return nil
}

// generateBookingReference generates a unique booking reference
func generateBookingReference(now time.Time) (string, error) {
	timestamp := now.Format("20060102")

	// 6 random uppercase letters
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)

	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		randomPart[i] = letters[num.Int64()]
	}

	return fmt.Sprintf("WT-%s-%s", timestamp, string(randomPart)), nil
}
