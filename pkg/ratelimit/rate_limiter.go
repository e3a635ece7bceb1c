package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"worldtour/internal/shared/config"
	"worldtour/internal/shared/constants"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type RateLimitType string

const (
	RateLimitTypeDefault RateLimitType = "default"
	RateLimitTypePublic  RateLimitType = "public"
	RateLimitTypeAuth    RateLimitType = "auth"
	RateLimitTypeBooking RateLimitType = "booking"
	RateLimitTypePayment RateLimitType = "payment"
	RateLimitTypeAdmin   RateLimitType = "admin"
	RateLimitTypeHealth  RateLimitType = "health"
)

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// KEYS[1] = window key
// ARGV[1] = window start (ms), ARGV[2] = now (ms), ARGV[3] = limit, ARGV[4] = window (ms), ARGV[5] = member
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window_ms = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local current = redis.call('ZCARD', key)

if current >= limit then
    redis.call('PEXPIRE', key, window_ms)
    return {0, 0}
end

redis.call('ZADD', key, now, ARGV[5])
redis.call('PEXPIRE', key, window_ms)
return {1, limit - current - 1}
`)

// RateLimiter counts requests per client in a Redis sliding window. When
// Redis cannot be reached it falls back to in-process token buckets.
type RateLimiter struct {
	client redis.Cmdable
	config config.RateLimitConfig
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewRateLimiter accepts a nil client, in which case only the local buckets are used
func NewRateLimiter(client redis.Cmdable, cfg config.RateLimitConfig) *RateLimiter {
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = time.Minute
	}
	return &RateLimiter{
		client:  client,
		config:  cfg,
		now:     time.Now,
		buckets: make(map[string]*rate.Limiter),
	}
}

// IsAllowed checks if request is allowed
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	limit := r.getLimit(limitType)
	now := r.now()

	if !r.config.Enabled || r.isWhitelisted(clientIP) || limit <= 0 {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetTime: now.Add(r.config.WindowDuration).Unix(),
		}, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s:%s", constants.CACHE_PREFIX, limitType, clientIP)
	if r.client == nil {
		return r.checkLocal(key, limit, now), nil
	}

	result, err := r.checkLimit(ctx, key, limit, now)
	if err != nil {
		return r.checkLocal(key, limit, now), err
	}
	return result, nil
}

// checkLimit performs the sliding window check in Redis
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, now time.Time) (*Result, error) {
	window := r.config.WindowDuration
	nowMs := now.UnixMilli()

	values, err := slidingWindowScript.Run(ctx, r.client, []string{key},
		nowMs-window.Milliseconds(),
		nowMs,
		limit,
		window.Milliseconds(),
		strconv.FormatInt(now.UnixNano(), 10),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected rate limit script result: %v", values)
	}

	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)

	return &Result{
		Allowed:   allowed == 1,
		Limit:     limit,
		Remaining: int(remaining),
		ResetTime: now.Add(window).Unix(),
	}, nil
}

// checkLocal refills limit tokens evenly over the window
func (r *RateLimiter) checkLocal(key string, limit int, now time.Time) *Result {
	r.mu.Lock()
	bucket, ok := r.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(rate.Every(r.config.WindowDuration/time.Duration(limit)), limit)
		r.buckets[key] = bucket
	}
	r.mu.Unlock()

	allowed := bucket.AllowN(now, 1)
	remaining := int(bucket.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetTime: now.Add(r.config.WindowDuration).Unix(),
	}
}

func (r *RateLimiter) getLimit(limitType RateLimitType) int {
	switch limitType {
	case RateLimitTypePublic:
		return r.config.PublicRequests
	case RateLimitTypeAuth:
		return r.config.AuthRequests
	case RateLimitTypeBooking:
		return r.config.BookingRequests
	case RateLimitTypePayment:
		return r.config.PaymentRequests
	case RateLimitTypeAdmin:
		return r.config.AdminRequests
	case RateLimitTypeHealth:
		return r.config.HealthRequests
	default:
		return r.config.DefaultRequests
	}
}

func (r *RateLimiter) isWhitelisted(ip string) bool {
	for _, whitelisted := range r.config.WhitelistedIPs {
		if ip == whitelisted {
			return true
		}
	}
	return false
}
