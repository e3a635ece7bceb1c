package catalog

import "time"

type ItemListQuery struct {
	Kind     string   `form:"kind" binding:"omitempty,catalogkind"`
	Category string   `form:"category"`
	Country  string   `form:"country"`
	City     string   `form:"city"`
	Search   string   `form:"search"`
	MinPrice *float64 `form:"min_price" binding:"omitempty,min=0"`
	MaxPrice *float64 `form:"max_price" binding:"omitempty,min=0"`
	Page     int      `form:"page" binding:"omitempty,min=1"`
	Limit    int      `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q ItemListQuery) ToItemQuery() ItemQuery {
	return ItemQuery{
		Kind:     Kind(q.Kind),
		Category: q.Category,
		Country:  q.Country,
		City:     q.City,
		Search:   q.Search,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Page:     q.Page,
		Limit:    q.Limit,
	}
}

type CreateItemRequest struct {
	Kind            string     `json:"kind" binding:"required,catalogkind"`
	Name            string     `json:"name" binding:"required,min=3,max=255"`
	Description     string     `json:"description" binding:"max=5000"`
	Category        string     `json:"category" binding:"max=100"`
	Country         string     `json:"country" binding:"max=100"`
	City            string     `json:"city" binding:"max=100"`
	ImageURL        string     `json:"image_url" binding:"omitempty,url"`
	UnitPrice       float64    `json:"unit_price" binding:"min=0"`
	Currency        string     `json:"currency" binding:"required,iso4217"`
	DiscountPercent float64    `json:"discount_percent" binding:"discount"`
	TotalCapacity   int        `json:"total_capacity" binding:"required,min=1,max=1000000"`
	HotelName       string     `json:"hotel_name" binding:"max=255"`
	Airline         string     `json:"airline" binding:"max=100"`
	Origin          string     `json:"origin" binding:"max=10"`
	DestinationCode string     `json:"destination_code" binding:"max=10"`
	DepartureTime   *time.Time `json:"departure_time"`
	ArrivalTime     *time.Time `json:"arrival_time"`
	DurationDays    int        `json:"duration_days" binding:"min=0,max=365"`
}

type SetAvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

type QuoteRequest struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	PartySize int        `json:"party_size" binding:"required,min=1,max=50"`
}
