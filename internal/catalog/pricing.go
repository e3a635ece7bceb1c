package catalog

import (
	"fmt"
	"time"

	"worldtour/internal/pricing"
)

// ErrDatesRequired is returned when a dated item is priced without a date range
var ErrDatesRequired = fmt.Errorf("%w: start_date and end_date are required", pricing.ErrInvalidArgument)

// PriceBreakdown is the result of pricing a party against an item
type PriceBreakdown struct {
	Quantity        int
	PartySize       int
	UnitPrice       pricing.Money
	DiscountPercent float64
	Total           pricing.Money
}

// PriceFor prices partySize guests on item for the given range. Flights ignore
// the range; packages use their fixed duration.
func PriceFor(item *CatalogItem, start, end *time.Time, partySize int) (PriceBreakdown, error) {
	var s, e time.Time
	if item.Kind.IsDated() && item.Kind != KindPackage {
		if start == nil || end == nil {
			return PriceBreakdown{}, ErrDatesRequired
		}
		s, e = *start, *end
	}

	quantity, err := pricing.QuantityFor(string(item.Kind), s, e, item.DurationDays)
	if err != nil {
		return PriceBreakdown{}, err
	}

	total, err := pricing.ComputePrice(item.Price(), quantity, partySize, item.DiscountPercent)
	if err != nil {
		return PriceBreakdown{}, err
	}

	return PriceBreakdown{
		Quantity:        quantity,
		PartySize:       partySize,
		UnitPrice:       item.Price(),
		DiscountPercent: item.DiscountPercent,
		Total:           total,
	}, nil
}
