package bookings

import (
	"time"

	"worldtour/internal/pricing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking is a ledger entry for one party booked against one catalog item.
// TotalPrice is always unit_price × quantity × party_size less the discount,
// in minor units of Currency.
type Booking struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingRef    string    `gorm:"uniqueIndex;not null;size:32" json:"booking_ref"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	TargetKind    Kind      `gorm:"type:varchar(20);not null" json:"target_kind"`
	CatalogItemID uuid.UUID `gorm:"type:uuid;index;not null" json:"catalog_item_id"`
	ItemName      string    `gorm:"size:255" json:"item_name"`

	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	DepartureTime *time.Time `json:"departure_time,omitempty"`
	ArrivalTime   *time.Time `json:"arrival_time,omitempty"`

	PartySize       int     `gorm:"not null" json:"party_size"`
	Quantity        int     `gorm:"not null" json:"quantity"`
	UnitPrice       int64   `gorm:"not null" json:"unit_price"`
	DiscountPercent float64 `gorm:"not null;default:0" json:"discount_percent"`
	TotalPrice      int64   `gorm:"not null" json:"total_price"`
	Currency        string  `gorm:"type:varchar(3);not null" json:"currency"`

	Status           Status        `gorm:"type:varchar(20);not null;index;check:status IN ('pending', 'confirmed', 'cancelled')" json:"status"`
	PaymentStatus    PaymentStatus `gorm:"type:varchar(20);not null;check:payment_status IN ('pending', 'paid', 'failed')" json:"payment_status"`
	PaymentReference *string       `gorm:"size:255" json:"payment_reference,omitempty"`
	PaymentSessionID *string       `gorm:"size:255" json:"payment_session_id,omitempty"`

	ReservationToken   uuid.UUID  `gorm:"type:uuid;not null" json:"-"`
	HoldExpiresAt      *time.Time `json:"hold_expires_at,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"size:500" json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// BeforeCreate assigns the primary key on the client so inserts need no RETURNING
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Total returns the booking total as money
func (b *Booking) Total() pricing.Money {
	return pricing.New(b.TotalPrice, b.Currency)
}

// Target returns the catalog reference the booking was made against
func (b *Booking) Target() Target {
	return Target{Kind: b.TargetKind, ItemID: b.CatalogItemID}
}

// ServiceStart is the moment the booked service begins: the check-in date for
// stays and packages, the departure for flights.
func (b *Booking) ServiceStart() *time.Time {
	if b.TargetKind == KindFlight {
		return b.DepartureTime
	}
	return b.StartDate
}

// BookingListQuery filters booking listings
type BookingListQuery struct {
	Page          int    `form:"page,default=1" binding:"min=1"`
	Limit         int    `form:"limit,default=10" binding:"min=1,max=100"`
	Status        string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=pending paid failed"`
	ItemID        string `form:"item_id" binding:"omitempty,uuid"`
	UserID        string `form:"user_id" binding:"omitempty,uuid"`
	DateFrom      string `form:"date_from"`
	DateTo        string `form:"date_to"`
}
