package bookings

import "time"

// CreateBookingRequest books PartySize guests on one catalog item.
// Flights ignore the dates; packages need only StartDate.
type CreateBookingRequest struct {
	TargetKind string     `json:"target_kind" binding:"required,catalogkind"`
	ItemID     string     `json:"item_id" binding:"required,uuid"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	PartySize  int        `json:"party_size" binding:"required"`

	// IdempotencyKey comes from the Idempotency-Key header
	IdempotencyKey string `json:"-"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}
