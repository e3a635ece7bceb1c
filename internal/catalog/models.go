package catalog

import (
	"time"

	"worldtour/internal/pricing"

	"github.com/google/uuid"
)

// Kind identifies what a catalog item sells
type Kind string

const (
	KindDestination Kind = pricing.KindDestination
	KindRoomType    Kind = pricing.KindRoomType
	KindFlight      Kind = pricing.KindFlight
	KindPackage     Kind = pricing.KindPackage
)

func (k Kind) IsValid() bool {
	switch k {
	case KindDestination, KindRoomType, KindFlight, KindPackage:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// IsDated reports whether bookings of this kind carry a start/end date range
func (k Kind) IsDated() bool {
	return k != KindFlight
}

// CatalogItem is a bookable destination stay, hotel room type, flight or package.
// AvailableCapacity is only ever changed by the inventory adjuster.
type CatalogItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Kind        Kind      `json:"kind" gorm:"type:varchar(20);not null;index"`
	Name        string    `json:"name" gorm:"not null;size:255"`
	Slug        string    `json:"slug" gorm:"uniqueIndex;not null;size:300"`
	Description string    `json:"description" gorm:"type:text"`
	Category    string    `json:"category" gorm:"size:100;index"`
	Country     string    `json:"country" gorm:"size:100;index"`
	City        string    `json:"city" gorm:"size:100"`
	ImageURL    string    `json:"image_url" gorm:"size:500"`

	UnitPrice       int64   `json:"unit_price" gorm:"not null"`
	Currency        string  `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	DiscountPercent float64 `json:"discount_percent" gorm:"not null;default:0"`

	TotalCapacity     int  `json:"total_capacity" gorm:"not null"`
	AvailableCapacity int  `json:"available_capacity" gorm:"not null"`
	Available         bool `json:"available" gorm:"not null;default:true;index"`

	// room types
	HotelName string `json:"hotel_name,omitempty" gorm:"size:255"`

	// flights
	Airline         string     `json:"airline,omitempty" gorm:"size:100"`
	Origin          string     `json:"origin,omitempty" gorm:"size:10"`
	DestinationCode string     `json:"destination_code,omitempty" gorm:"size:10"`
	DepartureTime   *time.Time `json:"departure_time,omitempty"`
	ArrivalTime     *time.Time `json:"arrival_time,omitempty"`

	// packages: contract length; destinations: suggested stay
	DurationDays int `json:"duration_days" gorm:"not null;default:0"`

	CreatedBy uuid.UUID `json:"created_by" gorm:"type:uuid"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (CatalogItem) TableName() string {
	return "catalog_items"
}

// Price returns the unit price as Money
func (i *CatalogItem) Price() pricing.Money {
	return pricing.New(i.UnitPrice, i.Currency)
}

// Bookable reports whether the item can currently accept reservations
func (i *CatalogItem) Bookable() bool {
	return i.Available && i.AvailableCapacity > 0
}

// ItemQuery is the typed filter for FindAvailableItems
type ItemQuery struct {
	Kind               Kind
	Category           string
	Country            string
	City               string
	Search             string
	MinPrice           *float64 // major units of the item's currency
	MaxPrice           *float64
	IncludeUnavailable bool
	Page               int
	Limit              int
}

func (q *ItemQuery) normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}
