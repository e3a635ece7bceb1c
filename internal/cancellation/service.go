package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"worldtour/internal/pricing"
	"worldtour/internal/shared/constants"
	"worldtour/pkg/cache"
	"worldtour/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrPolicyNotFound       = errors.New("cancellation policy not found")
	ErrCancellationNotFound = errors.New("cancellation not found")
	ErrInvalidPolicy        = errors.New("invalid cancellation policy")
)

// Service interface defines the contract for cancellation business logic
type Service interface {
	SetCacheService(cacheService cache.Service)

	// Cancellation Policy management
	GetPolicy(ctx context.Context, itemID uuid.UUID) (*CancellationPolicy, error)
	UpsertPolicy(ctx context.Context, itemID uuid.UUID, req CancellationPolicyRequest) (*CancellationPolicy, error)

	// Assess prices the cancellation of a booking under its item's policy.
	// Admins cancel on policy terms even past the deadline.
	Assess(ctx context.Context, booking BookingInfo, byAdmin bool, now time.Time) (Assessment, error)
	// Record stores the outcome of a cancellation; it joins the caller's transaction
	Record(ctx context.Context, booking BookingInfo, assessment Assessment, reason string, cancelledBy uuid.UUID) (*Cancellation, error)

	GetCancellationByBooking(ctx context.Context, bookingID uuid.UUID) (*Cancellation, error)
	GetUserCancellations(ctx context.Context, userID uuid.UUID) ([]Cancellation, error)
}

// BookingInfo is the part of a booking the fee computation needs
type BookingInfo struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CatalogItemID uuid.UUID
	Total         pricing.Money
	ServiceStart  *time.Time
}

// Assessment is the fee and refund a cancellation would incur
type Assessment struct {
	Fee          pricing.Money
	Refund       pricing.Money
	WithinPolicy bool
}

// CancellationPolicyRequest represents a request to create/update cancellation policy
type CancellationPolicyRequest struct {
	AllowCancellation    *bool   `json:"allow_cancellation" binding:"required"`
	DeadlineHours        int     `json:"deadline_hours" binding:"min=0,max=8760"`
	FeeType              FeeType `json:"fee_type" binding:"required,oneof=NONE FIXED PERCENTAGE"`
	FeeAmount            float64 `json:"fee_amount" binding:"min=0"`
	RefundProcessingDays int     `json:"refund_processing_days" binding:"omitempty,min=1,max=30"`
}

// service implements the Service interface
type service struct {
	repo         Repository
	cacheService cache.Service
	log          *logger.Logger
}

// NewService creates a new cancellation service instance
func NewService(repo Repository) Service {
	return &service{repo: repo, log: logger.GetDefault()}
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// GetPolicy retrieves the cancellation policy of a catalog item
func (s *service) GetPolicy(ctx context.Context, itemID uuid.UUID) (*CancellationPolicy, error) {
	if s.cacheService == nil {
		return s.repo.GetPolicyByItemID(ctx, itemID)
	}

	var policy CancellationPolicy
	err := s.cacheService.GetOrSet(ctx, constants.BuildCancellationPolicyKey(itemID.String()), constants.TTL_CANCELLATION_POLICY,
		func(ctx context.Context) (interface{}, error) {
			return s.repo.GetPolicyByItemID(ctx, itemID)
		}, &policy)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	return &policy, nil
}

// UpsertPolicy creates or replaces the cancellation policy of a catalog item
func (s *service) UpsertPolicy(ctx context.Context, itemID uuid.UUID, req CancellationPolicyRequest) (*CancellationPolicy, error) {
	if err := validatePolicyRequest(req); err != nil {
		return nil, err
	}

	processingDays := req.RefundProcessingDays
	if processingDays == 0 {
		processingDays = 5
	}

	policy := &CancellationPolicy{
		CatalogItemID:        itemID,
		AllowCancellation:    *req.AllowCancellation,
		DeadlineHours:        req.DeadlineHours,
		FeeType:              req.FeeType,
		FeeAmount:            req.FeeAmount,
		RefundProcessingDays: processingDays,
		UpdatedAt:            time.Now().UTC(),
	}

	if err := s.repo.UpsertPolicy(ctx, policy); err != nil {
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.Delete(ctx, constants.BuildCancellationPolicyKey(itemID.String())); err != nil {
			s.log.Warn("failed to invalidate cancellation policy cache", "error", err.Error())
		}
	}
	return policy, nil
}

func (s *service) Assess(ctx context.Context, booking BookingInfo, byAdmin bool, now time.Time) (Assessment, error) {
	policy, err := s.GetPolicy(ctx, booking.CatalogItemID)
	if err != nil && !errors.Is(err, ErrPolicyNotFound) {
		return Assessment{}, err
	}

	if byAdmin && policy != nil {
		// admins override the cutoff but still charge the policy fee
		relaxed := *policy
		relaxed.AllowCancellation = true
		relaxed.DeadlineHours = 0
		return Quote(&relaxed, booking.Total, nil, now)
	}
	return Quote(policy, booking.Total, booking.ServiceStart, now)
}

func (s *service) Record(ctx context.Context, booking BookingInfo, assessment Assessment, reason string, cancelledBy uuid.UUID) (*Cancellation, error) {
	now := time.Now().UTC()
	record := &Cancellation{
		BookingID:       booking.ID,
		UserID:          booking.UserID,
		CancelledBy:     cancelledBy,
		RequestedAt:     now,
		ProcessedAt:     &now,
		CancellationFee: assessment.Fee.Amount,
		RefundAmount:    assessment.Refund.Amount,
		Currency:        booking.Total.Currency,
		WithinPolicy:    assessment.WithinPolicy,
		Reason:          reason,
		Status:          StatusProcessed,
	}

	if err := s.repo.CreateCancellation(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) GetCancellationByBooking(ctx context.Context, bookingID uuid.UUID) (*Cancellation, error) {
	return s.repo.GetCancellationByBookingID(ctx, bookingID)
}

// GetUserCancellations retrieves all cancellations for a user
func (s *service) GetUserCancellations(ctx context.Context, userID uuid.UUID) ([]Cancellation, error) {
	return s.repo.GetCancellationsByUserID(ctx, userID)
}

// Quote computes the fee and refund for cancelling a booking worth total that
// starts at start. A nil policy means free cancellation. Cancelling after the
// deadline, or when the policy forbids it, forfeits the whole amount.
func Quote(policy *CancellationPolicy, total pricing.Money, start *time.Time, now time.Time) (Assessment, error) {
	zero := pricing.New(0, total.Currency)
	if total.Amount < 0 {
		return Assessment{}, fmt.Errorf("%w: total must not be negative", pricing.ErrInvalidArgument)
	}

	if policy == nil {
		return Assessment{Fee: zero, Refund: total, WithinPolicy: true}, nil
	}

	forfeit := Assessment{Fee: total, Refund: zero, WithinPolicy: false}
	if !policy.AllowCancellation {
		return forfeit, nil
	}
	if start != nil {
		cutoff := start.Add(-time.Duration(policy.DeadlineHours) * time.Hour)
		if now.After(cutoff) {
			return forfeit, nil
		}
	}

	var fee pricing.Money
	switch policy.FeeType {
	case FeeNone, "":
		fee = zero
	case FeeFixed:
		fixed, err := pricing.FromMajor(policy.FeeAmount, total.Currency)
		if err != nil {
			return Assessment{}, err
		}
		fee = fixed
	case FeePercentage:
		refund, err := pricing.ComputePrice(total, 1, 1, policy.FeeAmount)
		if err != nil {
			return Assessment{}, err
		}
		fee = pricing.New(total.Amount-refund.Amount, total.Currency)
	default:
		return Assessment{}, fmt.Errorf("%w: fee type %q", ErrInvalidPolicy, policy.FeeType)
	}

	// fee never exceeds the amount paid
	if fee.Amount > total.Amount {
		fee = total
	}
	return Assessment{
		Fee:          fee,
		Refund:       pricing.New(total.Amount-fee.Amount, total.Currency),
		WithinPolicy: true,
	}, nil
}

// validatePolicyRequest validates a cancellation policy request
func validatePolicyRequest(req CancellationPolicyRequest) error {
	if req.AllowCancellation == nil {
		return fmt.Errorf("%w: allow_cancellation is required", ErrInvalidPolicy)
	}
	if !req.FeeType.IsValid() {
		return fmt.Errorf("%w: unknown fee type %q", ErrInvalidPolicy, req.FeeType)
	}
	if req.FeeType == FeeFixed && req.FeeAmount <= 0 {
		return fmt.Errorf("%w: fixed fee amount must be greater than 0", ErrInvalidPolicy)
	}
	if req.FeeType == FeePercentage && (req.FeeAmount < 0 || req.FeeAmount > 100) {
		return fmt.Errorf("%w: percentage fee must be between 0 and 100", ErrInvalidPolicy)
	}
	if req.DeadlineHours < 0 {
		return fmt.Errorf("%w: deadline_hours must not be negative", ErrInvalidPolicy)
	}
	return nil
}
