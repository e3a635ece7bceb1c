package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePrice(t *testing.T) {
	tests := []struct {
		name      string
		unit      Money
		quantity  int
		partySize int
		discount  float64
		want      int64
	}{
		{"five nights for two", New(15000, "USD"), 5, 2, 0, 150000},
		{"ten percent off", New(15000, "USD"), 5, 2, 10, 135000},
		{"free with full discount", New(15000, "USD"), 3, 1, 100, 0},
		{"rounds half up", New(333, "USD"), 1, 1, 50, 167},
		{"fractional discount", New(1000, "EUR"), 1, 1, 12.5, 875},
		{"zero decimal currency", New(12345, "JPY"), 2, 3, 7, 68885},
		{"flight", New(42000, "GBP"), 1, 4, 0, 168000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputePrice(tt.unit, tt.quantity, tt.partySize, tt.discount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Amount)
			assert.Equal(t, tt.unit.Currency, got.Currency)
		})
	}
}

func TestComputePrice_RejectsInvalidInput(t *testing.T) {
	unit := New(1000, "USD")
	cases := map[string]func() (Money, error){
		"zero quantity":     func() (Money, error) { return ComputePrice(unit, 0, 1, 0) },
		"negative party":    func() (Money, error) { return ComputePrice(unit, 1, -1, 0) },
		"negative price":    func() (Money, error) { return ComputePrice(New(-1, "USD"), 1, 1, 0) },
		"discount above":    func() (Money, error) { return ComputePrice(unit, 1, 1, 100.5) },
		"discount below":    func() (Money, error) { return ComputePrice(unit, 1, 1, -1) },
		"discount NaN":      func() (Money, error) { return ComputePrice(unit, 1, 1, math.NaN()) },
		"overflowing total": func() (Money, error) { return ComputePrice(New(math.MaxInt64, "USD"), 2, 2, 0) },
	}

	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := call()
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestComputePrice_Monotonic(t *testing.T) {
	unit := New(9999, "USD")
	prev := int64(-1)
	for party := 1; party <= 10; party++ {
		got, err := ComputePrice(unit, 3, party, 15)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Amount, prev)
		prev = got.Amount
	}

	prev = math.MaxInt64
	for discount := 0.0; discount <= 100; discount += 5 {
		got, err := ComputePrice(unit, 3, 2, discount)
		require.NoError(t, err)
		assert.LessOrEqual(t, got.Amount, prev)
		prev = got.Amount
	}
}

func TestNights(t *testing.T) {
	start := time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)

	n, err := Nights(start, start.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// check-in afternoon, check-out morning still counts as one night
	n, err = Nights(start, time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = Nights(start, start)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Nights(start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestQuantityFor(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)

	q, err := QuantityFor(KindRoomType, start, end, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, q)

	q, err = QuantityFor(KindFlight, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, q)

	q, err = QuantityFor(KindPackage, start, end, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, q)

	_, err = QuantityFor(KindPackage, start, end, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = QuantityFor("cruise", start, end, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMoney(t *testing.T) {
	m, err := FromMajor(149.999, "usd")
	require.NoError(t, err)
	assert.Equal(t, New(15000, "USD"), m)
	assert.Equal(t, "150.00 USD", m.String())

	y, err := FromMajor(1234.4, "JPY")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), y.Amount)
	assert.Equal(t, "1234 JPY", y.String())

	_, err = FromMajor(math.Inf(1), "USD")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
