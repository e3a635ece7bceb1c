package bookings

import (
	"time"

	"worldtour/internal/pricing"
)

// BookingResponse is the API view of a booking. Prices are in major units.
type BookingResponse struct {
	BookingID       string     `json:"booking_id"`
	BookingRef      string     `json:"booking_ref"`
	TargetKind      string     `json:"target_kind"`
	ItemID          string     `json:"item_id"`
	ItemName        string     `json:"item_name,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	DepartureTime   *time.Time `json:"departure_time,omitempty"`
	ArrivalTime     *time.Time `json:"arrival_time,omitempty"`
	PartySize       int        `json:"party_size"`
	Quantity        int        `json:"quantity"`
	UnitPrice       float64    `json:"unit_price"`
	DiscountPercent float64    `json:"discount_percent"`
	TotalPrice      float64    `json:"total_price"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	PaymentRef      string     `json:"payment_reference,omitempty"`
	HoldExpiresAt   *time.Time `json:"hold_expires_at,omitempty"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelReason    string     `json:"cancellation_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type PaginationInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

type BookingListResponse struct {
	Bookings   []BookingResponse `json:"bookings"`
	Pagination PaginationInfo    `json:"pagination"`
}

func (b *Booking) ToResponse() BookingResponse {
	resp := BookingResponse{
		BookingID:       b.ID.String(),
		BookingRef:      b.BookingRef,
		TargetKind:      string(b.TargetKind),
		ItemID:          b.CatalogItemID.String(),
		ItemName:        b.ItemName,
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		DepartureTime:   b.DepartureTime,
		ArrivalTime:     b.ArrivalTime,
		PartySize:       b.PartySize,
		Quantity:        b.Quantity,
		UnitPrice:       pricing.New(b.UnitPrice, b.Currency).Major(),
		DiscountPercent: b.DiscountPercent,
		TotalPrice:      b.Total().Major(),
		Currency:        b.Currency,
		Status:          b.Status.String(),
		PaymentStatus:   b.PaymentStatus.String(),
		HoldExpiresAt:   b.HoldExpiresAt,
		ConfirmedAt:     b.ConfirmedAt,
		CancelledAt:     b.CancelledAt,
		CancelReason:    b.CancellationReason,
		CreatedAt:       b.CreatedAt,
	}
	if b.PaymentReference != nil {
		resp.PaymentRef = *b.PaymentReference
	}
	return resp
}

func newListResponse(bookings []Booking, total int64, page, limit int) *BookingListResponse {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookings[i].ToResponse())
	}
	return &BookingListResponse{
		Bookings: out,
		Pagination: PaginationInfo{
			Page:       page,
			Limit:      limit,
			TotalCount: total,
			TotalPages: CalculateTotalPages(total, limit),
		},
	}
}
