package pricing

import (
	"fmt"
	"math"
	"math/big"
	"time"
)

// Booking kinds determine how the priced quantity is derived
const (
	KindDestination = "destination"
	KindRoomType    = "room_type"
	KindFlight      = "flight"
	KindPackage     = "package"
)

// ComputePrice returns unitPrice × quantity × partySize × (1 − discountPercent/100)
// rounded half away from zero to the currency's minor unit.
func ComputePrice(unitPrice Money, quantity, partySize int, discountPercent float64) (Money, error) {
	switch {
	case quantity <= 0:
		return Money{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	case partySize <= 0:
		return Money{}, fmt.Errorf("%w: party size must be positive", ErrInvalidArgument)
	case unitPrice.Amount < 0:
		return Money{}, fmt.Errorf("%w: unit price must not be negative", ErrInvalidArgument)
	case math.IsNaN(discountPercent) || discountPercent < 0 || discountPercent > 100:
		return Money{}, fmt.Errorf("%w: discount must be within [0, 100]", ErrInvalidArgument)
	}

	gross := new(big.Int).SetInt64(unitPrice.Amount)
	gross.Mul(gross, big.NewInt(int64(quantity)))
	gross.Mul(gross, big.NewInt(int64(partySize)))

	// Discounts are applied in basis points so that e.g. 12.5% stays exact.
	bps := int64(math.Round(discountPercent * 100))
	num := new(big.Int).Mul(gross, big.NewInt(10000-bps))
	den := big.NewInt(10000)

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if new(big.Int).Mul(r, big.NewInt(2)).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return Money{}, fmt.Errorf("%w: total overflows", ErrInvalidArgument)
	}

	return New(q.Int64(), unitPrice.Currency), nil
}

// Nights returns the number of whole nights between start and end, compared by calendar date
func Nights(start, end time.Time) (int, error) {
	s := truncateDay(start)
	e := truncateDay(end)
	if !e.After(s) {
		return 0, fmt.Errorf("%w: end date must be after start date", ErrInvalidArgument)
	}
	return int(e.Sub(s).Hours() / 24), nil
}

// QuantityFor derives the priced quantity for a booking kind:
// nights for stays, one for a flight, the contract length for a package.
func QuantityFor(kind string, start, end time.Time, durationDays int) (int, error) {
	switch kind {
	case KindDestination, KindRoomType:
		return Nights(start, end)
	case KindFlight:
		return 1, nil
	case KindPackage:
		if durationDays <= 0 {
			return 0, fmt.Errorf("%w: package has no duration", ErrInvalidArgument)
		}
		return durationDays, nil
	default:
		return 0, fmt.Errorf("%w: unknown booking kind %q", ErrInvalidArgument, kind)
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
