package cancellation

import (
	"context"
	"errors"
	"fmt"

	"worldtour/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository interface defines the contract for cancellation data operations
type Repository interface {
	// Cancellation Policy operations
	GetPolicyByItemID(ctx context.Context, itemID uuid.UUID) (*CancellationPolicy, error)
	UpsertPolicy(ctx context.Context, policy *CancellationPolicy) error

	// Cancellation operations
	CreateCancellation(ctx context.Context, cancellation *Cancellation) error
	GetCancellationsByUserID(ctx context.Context, userID uuid.UUID) ([]Cancellation, error)
	GetCancellationByBookingID(ctx context.Context, bookingID uuid.UUID) (*Cancellation, error)
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new cancellation repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetPolicyByItemID retrieves the cancellation policy of a catalog item
func (r *repository) GetPolicyByItemID(ctx context.Context, itemID uuid.UUID) (*CancellationPolicy, error) {
	var policy CancellationPolicy
	err := database.Conn(ctx, r.db).First(&policy, "catalog_item_id = ?", itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to get cancellation policy: %w", err)
	}
	return &policy, nil
}

// UpsertPolicy creates the item's policy or replaces its terms
func (r *repository) UpsertPolicy(ctx context.Context, policy *CancellationPolicy) error {
	err := database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "catalog_item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"allow_cancellation", "deadline_hours", "fee_type", "fee_amount", "refund_processing_days", "updated_at",
		}),
	}).Create(policy).Error
	if err != nil {
		return fmt.Errorf("failed to save cancellation policy: %w", err)
	}
	return nil
}

// CreateCancellation stores a processed cancellation
func (r *repository) CreateCancellation(ctx context.Context, cancellation *Cancellation) error {
	err := database.Conn(ctx, r.db).Create(cancellation).Error
	if err != nil {
		return fmt.Errorf("failed to create cancellation: %w", err)
	}
	return nil
}

// GetCancellationsByUserID retrieves cancellations for a specific user
func (r *repository) GetCancellationsByUserID(ctx context.Context, userID uuid.UUID) ([]Cancellation, error) {
	var cancellations []Cancellation
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&cancellations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user cancellations: %w", err)
	}
	return cancellations, nil
}

// GetCancellationByBookingID retrieves a cancellation by booking ID
func (r *repository) GetCancellationByBookingID(ctx context.Context, bookingID uuid.UUID) (*Cancellation, error) {
	var cancellation Cancellation
	err := database.Conn(ctx, r.db).First(&cancellation, "booking_id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCancellationNotFound
		}
		return nil, fmt.Errorf("failed to get cancellation by booking ID: %w", err)
	}
	return &cancellation, nil
}
