// Package currency converts catalog prices into the caller's display currency.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"worldtour/internal/pricing"
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/constants"
	"worldtour/pkg/cache"
	"worldtour/pkg/logger"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// fallbackRates are used whenever the rate source cannot be reached
var fallbackRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.85,
	"GBP": 0.73,
	"JPY": 110.5,
	"AUD": 1.35,
	"CAD": 1.25,
	"CHF": 0.92,
	"CNY": 6.45,
	"INR": 74.5,
	"KES": 130.0,
	"ZAR": 18.5,
}

const (
	sourceLive     = "live"
	sourceFallback = "fallback"
)

// Rates are units of each currency per one unit of Base
type Rates struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	Source    string             `json:"source"`
	FetchedAt time.Time          `json:"fetched_at"`
}

type Service interface {
	Rates(ctx context.Context) (*Rates, error)
	Convert(ctx context.Context, amount pricing.Money, to string) (pricing.Money, error)
	Supported(ctx context.Context) []string
}

type service struct {
	cfg    config.CurrencyConfig
	cache  cache.Service
	client *http.Client
	log    *logger.Logger
	now    func() time.Time

	// without a cache, the last table is kept in process until memoUntil
	mu        sync.Mutex
	memo      *Rates
	memoUntil time.Time
}

// NewService creates the currency service. cacheService may be nil.
func NewService(cfg config.CurrencyConfig, cacheService cache.Service, client *http.Client) Service {
	if client == nil {
		client = &http.Client{Timeout: cfg.FetchTimeout}
	}
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "USD"
	}
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = 5 * time.Minute
	}
	return &service{
		cfg:    cfg,
		cache:  cacheService,
		client: client,
		log:    logger.GetDefault(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Rates returns live rates when available, otherwise the built-in table.
// A failed fetch serves the table for FallbackTTL before the source is tried again.
func (s *service) Rates(ctx context.Context) (*Rates, error) {
	if s.cache == nil {
		return s.fetchOrFallback(ctx), nil
	}

	key := constants.BuildCurrencyRatesKey(s.cfg.BaseCurrency)
	var cached Rates
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("exchange rate cache read failed", "error", err)
	}

	rates, ttl := s.fetchRates(ctx)
	if err := s.cache.Set(ctx, key, rates, ttl); err != nil {
		s.log.Warn("exchange rate cache write failed", "error", err)
	}
	return rates, nil
}

// Convert re-expresses amount in currency to, rounded to the target's minor unit
func (s *service) Convert(ctx context.Context, amount pricing.Money, to string) (pricing.Money, error) {
	to = strings.ToUpper(to)
	from := strings.ToUpper(amount.Currency)
	if from == to {
		return pricing.New(amount.Amount, to), nil
	}

	rates, err := s.Rates(ctx)
	if err != nil {
		return pricing.Money{}, err
	}

	fromRate, ok := rates.Rates[from]
	if !ok || fromRate <= 0 {
		return pricing.Money{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, from)
	}
	toRate, ok := rates.Rates[to]
	if !ok || toRate <= 0 {
		return pricing.Money{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, to)
	}

	return pricing.FromMajor(amount.Major()/fromRate*toRate, to)
}

// Supported lists currency codes the current rate table can convert
func (s *service) Supported(ctx context.Context) []string {
	rates, err := s.Rates(ctx)
	if err != nil {
		return nil
	}
	codes := make([]string, 0, len(rates.Rates))
	for code := range rates.Rates {
		codes = append(codes, code)
	}
	return codes
}

type ratesPayload struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (s *service) fetch(ctx context.Context) (*Rates, error) {
	if s.cfg.RatesURL == "" {
		return nil, errors.New("no rates url configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.RatesURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates request returned %d", resp.StatusCode)
	}

	var payload ratesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, errors.New("rate source returned no rates")
	}

	base := strings.ToUpper(payload.Base)
	if base == "" {
		base = s.cfg.BaseCurrency
	}
	payload.Rates[base] = 1.0

	return &Rates{
		Base:      base,
		Rates:     payload.Rates,
		Source:    sourceLive,
		FetchedAt: s.now(),
	}, nil
}

// fetchRates returns live rates with CacheTTL, or the fallback table with FallbackTTL
func (s *service) fetchRates(ctx context.Context) (*Rates, time.Duration) {
	rates, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn("exchange rate fetch failed, using fallback rates", "error", err, "retry_in", s.cfg.FallbackTTL.String())
		return s.fallback(), s.cfg.FallbackTTL
	}
	return rates, s.cfg.CacheTTL
}

func (s *service) fetchOrFallback(ctx context.Context) *Rates {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memo != nil && s.now().Before(s.memoUntil) {
		return s.memo
	}
	rates, ttl := s.fetchRates(ctx)
	s.memo, s.memoUntil = rates, s.now().Add(ttl)
	return rates
}

func (s *service) fallback() *Rates {
	rates := make(map[string]float64, len(fallbackRates))
	for k, v := range fallbackRates {
		rates[k] = v
	}
	return &Rates{
		Base:      "USD",
		Rates:     rates,
		Source:    sourceFallback,
		FetchedAt: s.now(),
	}
}
