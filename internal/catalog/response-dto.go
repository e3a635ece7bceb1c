package catalog

import (
	"time"

	"worldtour/internal/pricing"
)

type PriceView struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func NewPriceView(m pricing.Money) PriceView {
	return PriceView{Amount: m.Major(), Currency: m.Currency}
}

type ItemResponse struct {
	ID                string     `json:"id"`
	Kind              Kind       `json:"kind"`
	Name              string     `json:"name"`
	Slug              string     `json:"slug"`
	Description       string     `json:"description"`
	Category          string     `json:"category,omitempty"`
	Country           string     `json:"country,omitempty"`
	City              string     `json:"city,omitempty"`
	ImageURL          string     `json:"image_url,omitempty"`
	UnitPrice         PriceView  `json:"unit_price"`
	DisplayPrice      *PriceView `json:"display_price,omitempty"`
	DiscountPercent   float64    `json:"discount_percent"`
	TotalCapacity     int        `json:"total_capacity"`
	AvailableCapacity int        `json:"available_capacity"`
	Available         bool       `json:"available"`
	HotelName         string     `json:"hotel_name,omitempty"`
	Airline           string     `json:"airline,omitempty"`
	Origin            string     `json:"origin,omitempty"`
	DestinationCode   string     `json:"destination_code,omitempty"`
	DepartureTime     *time.Time `json:"departure_time,omitempty"`
	ArrivalTime       *time.Time `json:"arrival_time,omitempty"`
	DurationDays      int        `json:"duration_days,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type PaginatedItems struct {
	Items      []ItemResponse `json:"items"`
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

type QuoteResponse struct {
	ItemID          string     `json:"item_id"`
	Kind            Kind       `json:"kind"`
	Quantity        int        `json:"quantity"`
	PartySize       int        `json:"party_size"`
	UnitPrice       PriceView  `json:"unit_price"`
	DiscountPercent float64    `json:"discount_percent"`
	Total           PriceView  `json:"total"`
	TotalMinor      int64      `json:"total_minor"`
	DisplayTotal    *PriceView `json:"display_total,omitempty"`
	Available       bool       `json:"available"`
}

func (i *CatalogItem) ToResponse() ItemResponse {
	return ItemResponse{
		ID:                i.ID.String(),
		Kind:              i.Kind,
		Name:              i.Name,
		Slug:              i.Slug,
		Description:       i.Description,
		Category:          i.Category,
		Country:           i.Country,
		City:              i.City,
		ImageURL:          i.ImageURL,
		UnitPrice:         NewPriceView(i.Price()),
		DiscountPercent:   i.DiscountPercent,
		TotalCapacity:     i.TotalCapacity,
		AvailableCapacity: i.AvailableCapacity,
		Available:         i.Available,
		HotelName:         i.HotelName,
		Airline:           i.Airline,
		Origin:            i.Origin,
		DestinationCode:   i.DestinationCode,
		DepartureTime:     i.DepartureTime,
		ArrivalTime:       i.ArrivalTime,
		DurationDays:      i.DurationDays,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}
