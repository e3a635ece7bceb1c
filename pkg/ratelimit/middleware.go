package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"worldtour/internal/shared/utils/response"
	"worldtour/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware enforces per-client limits chosen from the matched route
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	log := logger.GetDefault()

	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		limitType := getRateLimitType(path)

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			// result still carries the local fallback decision
			log.ErrorWithContext(c.Request.Context(), "rate limit store unavailable", err, map[string]interface{}{
				"limit_type": string(limitType),
			})
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			log.LogRateLimitExceeded(c.Request.Context(), clientIP, path)
			response.RespondJSON(c, "error", http.StatusTooManyRequests,
				"Rate limit exceeded", nil, map[string]interface{}{
					"limit":      result.Limit,
					"reset_time": result.ResetTime,
				})
			c.Abort()
			return
		}

		c.Next()
	}
}

func getRateLimitType(path string) RateLimitType {
	switch {
	case strings.HasSuffix(path, "/health"),
		strings.HasSuffix(path, "/ping"),
		strings.HasSuffix(path, "/status"):
		return RateLimitTypeHealth

	case strings.Contains(path, "/admin/"):
		return RateLimitTypeAdmin

	case strings.Contains(path, "/auth/"):
		return RateLimitTypeAuth

	// checkout and payment callbacks
	case strings.Contains(path, "/payments"),
		strings.HasSuffix(path, "/checkout"):
		return RateLimitTypePayment

	case strings.Contains(path, "/bookings"),
		strings.Contains(path, "/cancellation"):
		return RateLimitTypeBooking

	case strings.Contains(path, "/catalog"),
		strings.Contains(path, "/currency"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}

// getClientIP extracts real client IP
func getClientIP(c *gin.Context) string {
	if xForwardedFor := c.GetHeader("X-Forwarded-For"); xForwardedFor != "" {
		ip := strings.TrimSpace(strings.Split(xForwardedFor, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := c.GetHeader("X-Real-IP"); xRealIP != "" {
		if net.ParseIP(xRealIP) != nil {
			return xRealIP
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
