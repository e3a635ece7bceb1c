package inventory

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationReleased ReservationStatus = "released"
)

// CapacityReservation records units taken from a catalog item. Its ID is the
// reservation token handed to the booking ledger.
type CapacityReservation struct {
	ID            uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	CatalogItemID uuid.UUID         `json:"catalog_item_id" gorm:"type:uuid;not null;index"`
	Quantity      int               `json:"quantity" gorm:"not null"`
	Status        ReservationStatus `json:"status" gorm:"type:varchar(16);not null;default:'active'"`
	ReleasedAt    *time.Time        `json:"released_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

func (CapacityReservation) TableName() string {
	return "capacity_reservations"
}
