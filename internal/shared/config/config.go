package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the World Tour backend
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	AllowedOrigins []string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Booking   BookingConfig
	Payments  PaymentsConfig
	Kafka     KafkaConfig
	Email     EmailConfig
	Currency  CurrencyConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	CacheTTL       time.Duration
	IdempotencyTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	Issuer           string
	JWTExpiresIn     time.Duration
	RefreshExpiresIn time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	AuthRequests    int           `json:"auth_requests"`
	BookingRequests int           `json:"booking_requests"`
	PaymentRequests int           `json:"payment_requests"`
	AdminRequests   int           `json:"admin_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// BookingConfig controls capacity holds on unpaid bookings
type BookingConfig struct {
	HoldTTL        time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
}

// PaymentsConfig selects and configures the payment gateway
type PaymentsConfig struct {
	Provider            string // "stripe" or "simulated"
	StripeSecretKey     string
	StripeWebhookSecret string
	SuccessURL          string
	CancelURL           string
}

// KafkaConfig holds notification pipeline configuration
type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	NotificationTopic string
	ConsumerGroupID   string
	Workers           int
	MaxRetries        int
}

// EmailConfig holds email configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// CurrencyConfig holds exchange rate source configuration
type CurrencyConfig struct {
	BaseCurrency string
	RatesURL     string
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	// FallbackTTL is how long the built-in table is served before the source is retried
	FallbackTTL time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB
		AllowedOrigins: getStringSliceEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "worldtour_db"),
			User:     getEnv("DB_USER", "worldtour_user"),
			Password: getEnv("DB_PASSWORD", "worldtour_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getIntEnv("REDIS_DB", 0),
			CacheTTL:       getDurationEnv("REDIS_CACHE_TTL", 1*time.Hour),
			IdempotencyTTL: getDurationEnv("REDIS_IDEMPOTENCY_TTL", 24*time.Hour),
		},

		JWT: JWTConfig{
			Secret:           getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
			Issuer:           getEnv("JWT_ISSUER", "worldtour"),
			JWTExpiresIn:     getDurationEnvSeconds("JWT_EXPIRES_IN", 15*time.Minute),
			RefreshExpiresIn: getDurationEnvSeconds("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
		},

		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:  getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			AuthRequests:    getIntEnv("RATE_LIMIT_AUTH_REQUESTS", 10),
			BookingRequests: getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 20),
			PaymentRequests: getIntEnv("RATE_LIMIT_PAYMENT_REQUESTS", 30),
			AdminRequests:   getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:  getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Booking: BookingConfig{
			HoldTTL:        getDurationEnv("BOOKING_HOLD_TTL", 30*time.Minute),
			SweepInterval:  getDurationEnv("BOOKING_SWEEP_INTERVAL", 1*time.Minute),
			SweepBatchSize: getIntEnv("BOOKING_SWEEP_BATCH_SIZE", 100),
		},

		Payments: PaymentsConfig{
			Provider:            getEnv("PAYMENT_PROVIDER", "simulated"),
			StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:          getEnv("PAYMENT_SUCCESS_URL", "http://localhost:3000/bookings/success"),
			CancelURL:           getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/bookings/cancel"),
		},

		Kafka: KafkaConfig{
			Enabled:           getBoolEnv("KAFKA_ENABLED", true),
			Brokers:           getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "worldtour-notifications"),
			ConsumerGroupID:   getEnv("KAFKA_CONSUMER_GROUP_ID", "worldtour-notification-workers"),
			Workers:           getIntEnv("NOTIFICATION_WORKERS", 1),
			MaxRetries:        getIntEnv("NOTIFICATION_MAX_RETRIES", 3),
		},

		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@worldtour.travel"),
			FromName:     getEnv("FROM_NAME", "World Tour"),
		},

		Currency: CurrencyConfig{
			BaseCurrency: strings.ToUpper(getEnv("CURRENCY_BASE", "USD")),
			RatesURL:     getEnv("CURRENCY_RATES_URL", "https://api.exchangerate-api.com/v4/latest/USD"),
			CacheTTL:     getDurationEnv("CURRENCY_CACHE_TTL", 24*time.Hour),
			FetchTimeout: getDurationEnv("CURRENCY_FETCH_TIMEOUT", 5*time.Second),
			FallbackTTL:  getDurationEnv("CURRENCY_FALLBACK_TTL", 5*time.Minute),
		},

		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds reads an integer number of seconds
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv reads a comma-separated list, ignoring blank entries
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// UsesStripe reports whether payments go through Stripe rather than the simulated gateway
func (c *Config) UsesStripe() bool {
	return strings.EqualFold(c.Payments.Provider, "stripe")
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
