package cancellation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeeType selects how a cancellation fee is computed
type FeeType string

const (
	FeeNone       FeeType = "NONE"
	FeeFixed      FeeType = "FIXED"
	FeePercentage FeeType = "PERCENTAGE"
)

func (f FeeType) IsValid() bool {
	switch f {
	case FeeNone, FeeFixed, FeePercentage:
		return true
	}
	return false
}

// CancellationPolicy defines the cancellation terms for a catalog item.
// FeeAmount is a percentage for PERCENTAGE fees and an amount in major units
// of the booking currency for FIXED fees.
type CancellationPolicy struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CatalogItemID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"catalog_item_id"`
	AllowCancellation    bool      `gorm:"not null;default:true" json:"allow_cancellation"`
	DeadlineHours        int       `gorm:"not null;default:0" json:"deadline_hours"`
	FeeType              FeeType   `gorm:"type:varchar(20);check:fee_type IN ('NONE', 'FIXED', 'PERCENTAGE');default:'NONE'" json:"fee_type"`
	FeeAmount            float64   `gorm:"not null;default:0" json:"fee_amount"`
	RefundProcessingDays int       `gorm:"not null;default:5" json:"refund_processing_days"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Cancellation records the fee and refund applied when a paid booking was cancelled
type Cancellation struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID       uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"booking_id"`
	UserID          uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	CancelledBy     uuid.UUID  `gorm:"type:uuid;not null" json:"cancelled_by"`
	RequestedAt     time.Time  `json:"requested_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	CancellationFee int64      `gorm:"not null;default:0" json:"cancellation_fee"`
	RefundAmount    int64      `gorm:"not null;default:0" json:"refund_amount"`
	Currency        string     `gorm:"type:varchar(3);not null" json:"currency"`
	WithinPolicy    bool       `gorm:"not null" json:"within_policy"`
	Reason          string     `gorm:"size:500" json:"reason"`
	Status          string     `gorm:"type:varchar(20);check:status IN ('PENDING', 'PROCESSED');default:'PROCESSED'" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

const StatusProcessed = "PROCESSED"

// TableName sets the table name for CancellationPolicy
func (CancellationPolicy) TableName() string {
	return "cancellation_policies"
}

// TableName sets the table name for Cancellation
func (Cancellation) TableName() string {
	return "cancellations"
}

func (p *CancellationPolicy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (c *Cancellation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
