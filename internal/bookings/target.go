package bookings

import (
	"fmt"

	"worldtour/internal/catalog"

	"github.com/google/uuid"
)

// Kind names the catalog kind a booking targets
type Kind = catalog.Kind

const (
	KindDestination = catalog.KindDestination
	KindRoomType    = catalog.KindRoomType
	KindFlight      = catalog.KindFlight
	KindPackage     = catalog.KindPackage
)

// Target is what a booking is made against. Exactly one kind is set; build it
// with one of the constructors below.
type Target struct {
	Kind   Kind
	ItemID uuid.UUID
}

func DestinationTarget(id uuid.UUID) Target { return Target{Kind: KindDestination, ItemID: id} }

func HotelRoomTarget(roomTypeID uuid.UUID) Target { return Target{Kind: KindRoomType, ItemID: roomTypeID} }

func FlightTarget(id uuid.UUID) Target { return Target{Kind: KindFlight, ItemID: id} }

func PackageTarget(id uuid.UUID) Target { return Target{Kind: KindPackage, ItemID: id} }

// ParseTarget builds a Target from its wire form
func ParseTarget(kind string, itemID uuid.UUID) (Target, error) {
	k := Kind(kind)
	if !k.IsValid() {
		return Target{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, kind)
	}
	if itemID == uuid.Nil {
		return Target{}, fmt.Errorf("%w: missing item id", ErrInvalidTarget)
	}
	return Target{Kind: k, ItemID: itemID}, nil
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ItemID)
}
