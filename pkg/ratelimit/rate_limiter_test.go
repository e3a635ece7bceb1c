package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"worldtour/internal/shared/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 5,
		PublicRequests:  100,
		AuthRequests:    2,
		BookingRequests: 20,
		PaymentRequests: 30,
		AdminRequests:   200,
		HealthRequests:  300,
		WhitelistedIPs:  []string{"10.0.0.1"},
	}
}

func TestRateLimiter_RedisWindow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, testConfig())
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	key := "worldtour:ratelimit:auth:192.0.2.7"
	args := []interface{}{
		now.UnixMilli() - time.Minute.Milliseconds(),
		now.UnixMilli(),
		2,
		time.Minute.Milliseconds(),
		strconv.FormatInt(now.UnixNano(), 10),
	}

	mock.ExpectEvalSha(slidingWindowScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(1), int64(1)})
	mock.ExpectEvalSha(slidingWindowScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(0), int64(0)})

	first, err := limiter.IsAllowed(context.Background(), "192.0.2.7", RateLimitTypeAuth)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 2, first.Limit)
	assert.Equal(t, 1, first.Remaining)

	second, err := limiter.IsAllowed(context.Background(), "192.0.2.7", RateLimitTypeAuth)
	require.NoError(t, err)
	assert.False(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)
	assert.Equal(t, now.Add(time.Minute).Unix(), second.ResetTime)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_FallsBackWhenRedisFails(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, testConfig())
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	key := "worldtour:ratelimit:auth:192.0.2.7"
	for i := 0; i < 3; i++ {
		mock.ExpectEvalSha(slidingWindowScript.Hash(), []string{key},
			now.UnixMilli()-time.Minute.Milliseconds(),
			now.UnixMilli(),
			2,
			time.Minute.Milliseconds(),
			strconv.FormatInt(now.UnixNano(), 10),
		).SetErr(errors.New("connection refused"))
	}

	var allowed int
	for i := 0; i < 3; i++ {
		result, err := limiter.IsAllowed(context.Background(), "192.0.2.7", RateLimitTypeAuth)
		assert.Error(t, err)
		require.NotNil(t, result)
		if result.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestRateLimiter_LocalOnly(t *testing.T) {
	limiter := NewRateLimiter(nil, testConfig())
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		result, err := limiter.IsAllowed(context.Background(), "192.0.2.8", RateLimitTypeDefault)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d", i+1)
	}

	result, err := limiter.IsAllowed(context.Background(), "192.0.2.8", RateLimitTypeDefault)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// one token refills every window/limit
	now = now.Add(12 * time.Second)
	result, err = limiter.IsAllowed(context.Background(), "192.0.2.8", RateLimitTypeDefault)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	// buckets are per client
	result, err = limiter.IsAllowed(context.Background(), "192.0.2.9", RateLimitTypeDefault)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimiter_BypassesWhenDisabledOrWhitelisted(t *testing.T) {
	db, mock := redismock.NewClientMock()

	cfg := testConfig()
	limiter := NewRateLimiter(db, cfg)
	result, err := limiter.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeAuth)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining)

	cfg.Enabled = false
	limiter = NewRateLimiter(db, cfg)
	result, err = limiter.IsAllowed(context.Background(), "192.0.2.7", RateLimitTypeAuth)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRateLimitType(t *testing.T) {
	tests := map[string]RateLimitType{
		"/api/v1/health":                           RateLimitTypeHealth,
		"/api/v1/ping":                             RateLimitTypeHealth,
		"/api/v1/admin/bookings":                   RateLimitTypeAdmin,
		"/api/v1/auth/login":                       RateLimitTypeAuth,
		"/api/v1/bookings/:id/checkout":            RateLimitTypePayment,
		"/api/v1/payments/webhooks/stripe":         RateLimitTypePayment,
		"/api/v1/bookings":                         RateLimitTypeBooking,
		"/api/v1/users/cancellations":              RateLimitTypeBooking,
		"/api/v1/catalog/items":                    RateLimitTypePublic,
		"/api/v1/currency/rates":                   RateLimitTypePublic,
		"/api/v1/users/bookings":                   RateLimitTypeBooking,
		"/swagger/index.html":                      RateLimitTypeDefault,
		"/api/v1/catalog/cancellation-policies/:x": RateLimitTypeBooking,
	}

	for path, want := range tests {
		assert.Equal(t, want, getRateLimitType(path), path)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	limiter := NewRateLimiter(nil, cfg)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	router := gin.New()
	router.Use(Middleware(limiter))
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.1.1.1")
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, send().Code)
	w := send()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	w = send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "error", gjson.Get(w.Body.String(), "status").String())
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "errors.limit").Int())
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, remote: "10.0.0.2:1234", want: "203.0.113.5"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "203.0.113.6"}, remote: "10.0.0.2:1234", want: "203.0.113.6"},
		{name: "garbage header", headers: map[string]string{"X-Forwarded-For": "not-an-ip"}, remote: "192.0.2.1:80", want: "192.0.2.1"},
		{name: "remote addr", remote: "192.0.2.2:5555", want: "192.0.2.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(c))
		})
	}
}
