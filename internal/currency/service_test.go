package currency

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"worldtour/internal/pricing"
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/constants"
	"worldtour/pkg/cache"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc) Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewService(config.CurrencyConfig{
		BaseCurrency: "USD",
		RatesURL:     srv.URL,
		CacheTTL:     time.Hour,
		FetchTimeout: time.Second,
	}, nil, srv.Client())
}

func TestRates_Live(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"EUR":0.9,"JPY":150}}`))
	})

	rates, err := svc.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "live", rates.Source)
	assert.InDelta(t, 0.9, rates.Rates["EUR"], 1e-9)
	assert.InDelta(t, 1.0, rates.Rates["USD"], 1e-9)
}

func TestRates_FallbackOnUpstreamError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	rates, err := svc.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", rates.Source)
	assert.InDelta(t, 130.0, rates.Rates["KES"], 1e-9)
}

func TestConvert(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()

	// 100.00 USD -> 85.00 EUR
	eur, err := svc.Convert(ctx, pricing.New(10000, "USD"), "eur")
	require.NoError(t, err)
	assert.Equal(t, pricing.New(8500, "EUR"), eur)

	// 100.00 USD -> 11050 JPY, no minor unit
	jpy, err := svc.Convert(ctx, pricing.New(10000, "USD"), "JPY")
	require.NoError(t, err)
	assert.Equal(t, int64(11050), jpy.Amount)

	// 73.00 GBP -> 100.00 USD
	usd, err := svc.Convert(ctx, pricing.New(7300, "GBP"), "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), usd.Amount)

	same, err := svc.Convert(ctx, pricing.New(123, "USD"), "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(123), same.Amount)

	_, err = svc.Convert(ctx, pricing.New(100, "USD"), "XYZ")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestRates_FallbackIsReusedUntilRetry(t *testing.T) {
	var hits atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return now }

	// one listing page converts every item
	for i := 0; i < 10; i++ {
		_, err := svc.Convert(context.Background(), pricing.New(10000, "USD"), "EUR")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	now = now.Add(5*time.Minute + time.Second)
	rates, err := svc.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", rates.Source)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRates_FallbackCachedWithShortTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	db, mock := redismock.NewClientMock()
	svc := NewService(config.CurrencyConfig{
		BaseCurrency: "USD",
		RatesURL:     srv.URL,
		CacheTTL:     24 * time.Hour,
		FallbackTTL:  2 * time.Minute,
		FetchTimeout: time.Second,
	}, cache.NewService(db), srv.Client())
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return now }

	table := make(map[string]float64, len(fallbackRates))
	for k, v := range fallbackRates {
		table[k] = v
	}
	stored, err := json.Marshal(&Rates{Base: "USD", Rates: table, Source: "fallback", FetchedAt: now})
	require.NoError(t, err)

	key := constants.BuildCurrencyRatesKey("USD")
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, stored, 2*time.Minute).SetVal("OK")
	mock.ExpectGet(key).SetVal(string(stored))

	first, err := svc.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", first.Source)

	second, err := svc.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", second.Source)
	assert.InDelta(t, 0.85, second.Rates["EUR"], 1e-9)

	assert.Equal(t, int32(1), hits.Load())
	require.NoError(t, mock.ExpectationsWereMet())
}
