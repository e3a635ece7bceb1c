package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"worldtour/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRequestInFlight is returned when another request holding the same
// Idempotency-Key has not finished yet
var ErrRequestInFlight = errors.New("a request with this idempotency key is still in progress")

const idempotencyPending = "pending"

// IdempotencyGuard remembers which booking a client-supplied key produced
type IdempotencyGuard interface {
	// Claim reserves key for userID. When the key was already used, claimed
	// is false and existing holds the booking it produced.
	Claim(ctx context.Context, userID uuid.UUID, key string) (existing uuid.UUID, claimed bool, err error)
	Complete(ctx context.Context, userID uuid.UUID, key string, bookingID uuid.UUID) error
	Abandon(ctx context.Context, userID uuid.UUID, key string) error
}

// KEYS[1] = idempotency key
// ARGV[1] = placeholder value
// ARGV[2] = ttl in milliseconds
var claimScript = redis.NewScript(`
local ok = redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2])
if ok then
    return {1, ARGV[1]}
end
local current = redis.call("GET", KEYS[1])
if not current then
    return {0, ""}
end
return {0, current}
`)

// Deletes the key only while it still holds the placeholder, so a completed
// booking id is never dropped by a late abandon.
var abandonScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisIdempotencyGuard struct {
	redis redis.Cmdable
	ttl   time.Duration
}

// NewRedisIdempotencyGuard stores keys in Redis for ttl
func NewRedisIdempotencyGuard(client redis.Cmdable, ttl time.Duration) IdempotencyGuard {
	return &redisIdempotencyGuard{redis: client, ttl: ttl}
}

func (g *redisIdempotencyGuard) Claim(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error) {
	redisKey := constants.BuildIdempotencyKey(userID.String(), key)

	result, err := claimScript.Run(ctx, g.redis, []string{redisKey}, idempotencyPending, g.ttl.Milliseconds()).Slice()
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if len(result) != 2 {
		return uuid.Nil, false, fmt.Errorf("unexpected idempotency script result: %v", result)
	}

	if claimed, _ := result[0].(int64); claimed == 1 {
		return uuid.Nil, true, nil
	}

	value, _ := result[1].(string)
	switch value {
	case "", idempotencyPending:
		// "" means the key lapsed between SET and GET; a retry will claim it
		return uuid.Nil, false, ErrRequestInFlight
	}

	bookingID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt idempotency record %q: %w", redisKey, err)
	}
	return bookingID, false, nil
}

func (g *redisIdempotencyGuard) Complete(ctx context.Context, userID uuid.UUID, key string, bookingID uuid.UUID) error {
	redisKey := constants.BuildIdempotencyKey(userID.String(), key)
	return g.redis.Set(ctx, redisKey, bookingID.String(), g.ttl).Err()
}

func (g *redisIdempotencyGuard) Abandon(ctx context.Context, userID uuid.UUID, key string) error {
	redisKey := constants.BuildIdempotencyKey(userID.String(), key)
	return abandonScript.Run(ctx, g.redis, []string{redisKey}, idempotencyPending).Err()
}

// PreloadScripts loads the Lua scripts so the first request avoids a NOSCRIPT round trip
func PreloadScripts(ctx context.Context, client redis.Cmdable) error {
	if err := claimScript.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("failed to load idempotency claim script: %w", err)
	}
	if err := abandonScript.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("failed to load idempotency abandon script: %w", err)
	}
	return nil
}
