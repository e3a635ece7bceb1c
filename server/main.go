package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"worldtour/api/routes"
	_ "worldtour/docs"
	"worldtour/internal/auth"
	"worldtour/internal/bookings"
	"worldtour/internal/cancellation"
	"worldtour/internal/catalog"
	"worldtour/internal/inventory"
	"worldtour/internal/notifications"
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/database"
	"worldtour/internal/shared/middleware"
	"worldtour/internal/shared/validation"
	"worldtour/internal/users"
	"worldtour/pkg/logger"
	"worldtour/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// @title World Tour Booking API
// @version 1.0
// @description Catalog, booking, payment and cancellation API for the World Tour travel platform.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		logger.GetDefault().Error("Server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// run loads configuration, opens the databases and serves until SIGINT or SIGTERM
func run() error {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.Register(v); err != nil {
			return fmt.Errorf("failed to register validators: %w", err)
		}
	}

	db, err := database.InitDB(cfg,
		&users.User{},
		&catalog.CatalogItem{},
		&inventory.CapacityReservation{},
		&bookings.Booking{},
		&cancellation.CancellationPolicy{},
		&cancellation.Cancellation{},
	)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, db)
}

// serve runs the API on db until ctx is done or the listener fails. It owns db:
// everything it started is stopped and db is closed before it returns.
func serve(ctx context.Context, cfg *config.Config, db *database.DB) error {
	appLogger := logger.GetDefault()
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing databases", slog.Any("error", err))
		}
	}()

	if db.Redis != nil {
		preloadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := bookings.PreloadScripts(preloadCtx, db.Redis); err != nil {
			// scripts are loaded on first use
			appLogger.Error("Failed to preload Redis Lua scripts", slog.Any("error", err))
		} else {
			appLogger.Info("✅ Redis Lua scripts preloaded for idempotent bookings")
		}
		cancel()
	}

	var limiterStore redis.Cmdable
	if db.Redis != nil {
		limiterStore = db.Redis
	}
	rateLimiter := ratelimit.NewRateLimiter(limiterStore, cfg.RateLimit)
	appLogger.Info("Rate limiter initialized",
		slog.Bool("enabled", cfg.RateLimit.Enabled),
		slog.Duration("window", cfg.RateLimit.WindowDuration),
		slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
	)

	notificationCtx, notificationCancel := context.WithCancel(context.Background())
	defer notificationCancel()

	appRouter := routes.NewRouter(cfg, db)

	userDirectory := auth.NewUserServiceAdapter(auth.NewRepository(db.GetPostgreSQL()))
	notificationService, err := notifications.NewService(cfg, userDirectory)
	if err != nil {
		appLogger.Error("Failed to initialize notification service", slog.Any("error", err))
		appLogger.Info("Continuing without notification service - booking notices will not be sent")
	} else {
		notificationService.Start(notificationCtx)
		appRouter.SetNotifier(notificationService)
		appLogger.Info("Notification service started", slog.Bool("kafka", cfg.Kafka.Enabled))

		defer func() {
			appLogger.Info("Stopping notification service...")
			if err := notificationService.Stop(); err != nil {
				appLogger.Error("Error stopping notification service", slog.Any("error", err))
			}
		}()
	}

	router := setupRouter(cfg, appRouter, rateLimiter)

	sweeper, err := bookings.NewHoldSweeper(appRouter.Bookings(), cfg.Booking)
	if err != nil {
		return fmt.Errorf("failed to create hold sweeper: %w", err)
	}
	if err := sweeper.Start(); err != nil {
		_ = sweeper.Stop()
		return fmt.Errorf("failed to start hold sweeper: %w", err)
	}
	defer func() {
		if err := sweeper.Stop(); err != nil {
			appLogger.Error("Error stopping hold sweeper", slog.Any("error", err))
		}
	}()

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("status", fmt.Sprintf("http://localhost:%s/status", cfg.Port)),
			slog.String("swagger", fmt.Sprintf("http://localhost:%s/swagger/index.html", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.String("payment_provider", cfg.Payments.Provider),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
	return nil
}

func setupRouter(cfg *config.Config, appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if len(cfg.AllowedOrigins) == 0 {
				return true
			}
			for _, allowed := range cfg.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept-Language", "Idempotency-Key", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit.Enabled {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	// currency and locale for every request
	engine.Use(middleware.Localization())

	appRouter.SetupRoutes(engine)
	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.LogHTTPRequest(c, time.Since(start))
	}
}
