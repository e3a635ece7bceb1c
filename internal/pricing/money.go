// Package pricing holds the booking price calculator. Amounts are integer
// minor units of their currency, so a value is always representable at the
// currency's own precision.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidArgument is returned for any input the calculator refuses
var ErrInvalidArgument = errors.New("invalid argument")

// zeroDecimal lists ISO 4217 currencies without a minor unit
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true,
	"JPY": true, "KMF": true, "KRW": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

// Money is an amount in minor units of Currency
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// MinorUnits returns the number of decimal places used by currency
func MinorUnits(currency string) int {
	if zeroDecimal[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

func scale(currency string) float64 {
	return math.Pow10(MinorUnits(currency))
}

// New builds a Money from minor units
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}
}

// FromMajor converts a major-unit amount such as 149.99 into Money, rounding
// half away from zero at the currency's precision.
func FromMajor(major float64, currency string) (Money, error) {
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return Money{}, fmt.Errorf("%w: amount is not a number", ErrInvalidArgument)
	}
	minor := math.Round(major * scale(currency))
	if math.Abs(minor) > math.MaxInt64/2 {
		return Money{}, fmt.Errorf("%w: amount out of range", ErrInvalidArgument)
	}
	return New(int64(minor), currency), nil
}

// Major returns the amount in major units, for presentation only
func (m Money) Major() float64 {
	return float64(m.Amount) / scale(m.Currency)
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// String renders the amount with the currency's precision, e.g. "1500.00 USD"
func (m Money) String() string {
	return fmt.Sprintf("%.*f %s", MinorUnits(m.Currency), m.Major(), m.Currency)
}

// ZeroDecimalCurrencies lists the currencies whose minor unit is the major unit
func ZeroDecimalCurrencies() []string {
	out := make([]string, 0, len(zeroDecimal))
	for code := range zeroDecimal {
		out = append(out, code)
	}
	return out
}
