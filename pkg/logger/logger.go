package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with request and booking helpers
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to stdout. Text output in gin debug mode,
// JSON everywhere else.
func New() *Logger {
	return NewWithWriter(os.Stdout, getLogLevel(os.Getenv("LOG_LEVEL")))
}

// NewWithWriter creates a logger writing to w at the given level
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything, handy in tests
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("request_id", requestID))}
}

// WithUserID adds user ID to logger context
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("user_id", userID))}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("error", err.Error()))}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Booking ledger logging methods

// LogBookingCreated logs a new pending booking
func (l *Logger) LogBookingCreated(ctx context.Context, bookingID, itemID, userID string, totalMinor int64, currency string) {
	l.Logger.InfoContext(ctx,
		"Booking Created",
		slog.String("booking_id", bookingID),
		slog.String("catalog_item_id", itemID),
		slog.String("user_id", userID),
		slog.Int64("total_minor", totalMinor),
		slog.String("currency", currency),
	)
}

// LogBookingConfirmed logs a booking whose payment succeeded
func (l *Logger) LogBookingConfirmed(ctx context.Context, bookingID, paymentReference string) {
	l.Logger.InfoContext(ctx,
		"Booking Confirmed",
		slog.String("booking_id", bookingID),
		slog.String("payment_reference", paymentReference),
	)
}

// LogBookingCancelled logs when a booking is cancelled
func (l *Logger) LogBookingCancelled(ctx context.Context, bookingID, userID, reason string) {
	l.Logger.InfoContext(ctx,
		"Booking Cancelled",
		slog.String("booking_id", bookingID),
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)
}

// LogPaymentFailed logs a failed or abandoned payment
func (l *Logger) LogPaymentFailed(ctx context.Context, bookingID, reason string) {
	l.Logger.WarnContext(ctx,
		"Payment Failed",
		slog.String("booking_id", bookingID),
		slog.String("reason", reason),
	)
}

// LogHoldsExpired logs a sweep of stale pending bookings
func (l *Logger) LogHoldsExpired(ctx context.Context, count int) {
	l.Logger.InfoContext(ctx,
		"Pending Holds Expired",
		slog.Int("count", count),
	)
}

// Inventory logging methods

// LogCapacityReserved logs a successful reserve
func (l *Logger) LogCapacityReserved(ctx context.Context, itemID, token string, quantity int) {
	l.Logger.DebugContext(ctx,
		"Capacity Reserved",
		slog.String("catalog_item_id", itemID),
		slog.String("reservation_token", token),
		slog.Int("quantity", quantity),
	)
}

// LogCapacityReleased logs a reservation credited back to its item
func (l *Logger) LogCapacityReleased(ctx context.Context, itemID, token string, quantity int) {
	l.Logger.DebugContext(ctx,
		"Capacity Released",
		slog.String("catalog_item_id", itemID),
		slog.String("reservation_token", token),
		slog.Int("quantity", quantity),
	)
}

// Security logging methods

// LogAuthSuccess logs successful authentication
func (l *Logger) LogAuthSuccess(ctx context.Context, userID, method string) {
	l.Logger.InfoContext(ctx,
		"Authentication Success",
		slog.String("user_id", userID),
		slog.String("method", method),
	)
}

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New())
}

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger.Load()
}

// SetDefault sets the default logger instance
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}
