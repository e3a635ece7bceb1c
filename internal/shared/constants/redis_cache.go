package constants

import (
	"fmt"
	"time"
)

// Redis keys follow worldtour:{module}:{operation}:{identifier}:{params?}

const (
	TTL_STATIC_LONG       = 24 * time.Hour
	TTL_SEMI_STATIC_SHORT = 1 * time.Hour
	TTL_SEMI_STATIC_QUICK = 15 * time.Minute
	TTL_DYNAMIC_QUICK     = 2 * time.Minute
)

const (
	CACHE_PREFIX = "worldtour"
)

// ================== CATALOG MODULE ==================

const (
	CACHE_KEY_CATALOG_LIST   = CACHE_PREFIX + ":catalog:list"         // + :hash
	CACHE_KEY_CATALOG_DETAIL = CACHE_PREFIX + ":catalog:detail:uuid:" // + item-id
	CACHE_KEY_CATALOG_SLUG   = CACHE_PREFIX + ":catalog:detail:slug:" // + slug
)

// Catalog listings carry live capacity, so they expire quickly.
const (
	TTL_CATALOG_LIST   = TTL_DYNAMIC_QUICK
	TTL_CATALOG_DETAIL = TTL_DYNAMIC_QUICK
)

// ================== CURRENCY MODULE ==================

const (
	CACHE_KEY_CURRENCY_RATES = CACHE_PREFIX + ":currency:rates:" // + base currency
)

const (
	TTL_CURRENCY_RATES = TTL_STATIC_LONG
)

// ================== BOOKINGS MODULE ==================

const (
	CACHE_KEY_BOOKING_IDEMPOTENCY = CACHE_PREFIX + ":bookings:idempotency:" // + user-id:key
)

const (
	TTL_BOOKING_IDEMPOTENCY = TTL_STATIC_LONG
)

// ================== CANCELLATION MODULE ==================

const (
	CACHE_KEY_CANCELLATION_POLICY = CACHE_PREFIX + ":cancellation:policy:item:" // + item-id
)

const (
	TTL_CANCELLATION_POLICY = TTL_SEMI_STATIC_SHORT
)

// ================== INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_CATALOG_ALL = CACHE_PREFIX + ":catalog:*"
)

func BuildCatalogListKey(fingerprint string) string {
	return CACHE_KEY_CATALOG_LIST + ":" + fingerprint
}

func BuildCatalogDetailKey(itemID string) string {
	return CACHE_KEY_CATALOG_DETAIL + itemID
}

func BuildCatalogSlugKey(slug string) string {
	return CACHE_KEY_CATALOG_SLUG + slug
}

func BuildCurrencyRatesKey(base string) string {
	return CACHE_KEY_CURRENCY_RATES + base
}

func BuildIdempotencyKey(userID, key string) string {
	return fmt.Sprintf("%s%s:%s", CACHE_KEY_BOOKING_IDEMPOTENCY, userID, key)
}

func BuildCancellationPolicyKey(itemID string) string {
	return CACHE_KEY_CANCELLATION_POLICY + itemID
}
