// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"worldtour/internal/auth"
	"worldtour/internal/bookings"
	"worldtour/internal/cancellation"
	"worldtour/internal/catalog"
	"worldtour/internal/currency"
	"worldtour/internal/inventory"
	"worldtour/internal/payments"
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/constants"
	"worldtour/internal/shared/database"
	"worldtour/pkg/cache"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const serviceName = "worldtour-backend"

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	cache    cache.Service
	notifier bookings.Notifier

	// Shared between route groups
	catalogService      catalog.Service
	currencyService     currency.Service
	cancellationService cancellation.Service
	bookingService      bookings.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB) *Router {
	r := &Router{
		config: cfg,
		db:     db,
	}
	if db.Redis != nil {
		r.cache = cache.NewService(db.Redis)
	}
	return r
}

// SetNotifier must be called before SetupRoutes for booking notices to be sent
func (r *Router) SetNotifier(notifier bookings.Notifier) {
	r.notifier = notifier
}

// Bookings returns the booking service built by SetupRoutes
func (r *Router) Bookings() bookings.Service {
	return r.bookingService
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupAuthRoutes(api)

		// currency before catalog, cancellation before bookings, bookings before payments
		r.setupCurrencyRoutes(api)
		r.setupCatalogRoutes(api)
		r.setupCancellationRoutes(api)
		r.setupBookingRoutes(api)
		r.setupPaymentRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   serviceName,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   serviceName,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		notifications := "direct"
		if r.config.Kafka.Enabled {
			notifications = "kafka"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":           "operational",
			"api_version":      r.config.APIVersion,
			"payment_provider": r.config.Payments.Provider,
			"notifications":    notifications,
			"timestamp":        time.Now(),
		})
	})
}

func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	authRepo := auth.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(authRepo, r.config)
	authController := auth.NewController(authService)

	auth.NewRouter(authController, r.config).SetupRoutes(rg)
}

func (r *Router) setupCurrencyRoutes(rg *gin.RouterGroup) {
	r.currencyService = currency.NewService(r.config.Currency, r.cache, nil)
	currency.SetupCurrencyRoutes(rg, currency.NewController(r.currencyService))
}

func (r *Router) setupCatalogRoutes(rg *gin.RouterGroup) {
	catalogService := catalog.NewService(catalog.NewRepository(r.db.GetPostgreSQL()))
	if r.cache != nil {
		catalogService.SetCacheService(r.cache)
	}
	catalogService.SetConverter(r.currencyService)
	r.catalogService = catalogService

	catalog.SetupCatalogRoutes(rg, catalog.NewController(catalogService), r.config)
}

func (r *Router) setupCancellationRoutes(rg *gin.RouterGroup) {
	cancellationService := cancellation.NewService(cancellation.NewRepository(r.db.GetPostgreSQL()))
	if r.cache != nil {
		cancellationService.SetCacheService(r.cache)
	}
	r.cancellationService = cancellationService

	cancellation.SetupCancellationRoutes(rg, cancellation.NewController(cancellationService), r.config)
}

func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	pg := r.db.GetPostgreSQL()
	tx := database.NewTransactor(pg)

	bookingService := bookings.NewService(
		bookings.NewRepository(pg),
		r.catalogService,
		inventory.NewAdjuster(pg, tx),
		tx,
		r.config.Booking,
	)
	bookingService.SetCancellationRecorder(r.cancellationService)
	bookingService.SetCapacityObserver(r.catalogService)
	if r.notifier != nil {
		bookingService.SetNotifier(r.notifier)
	}
	if r.db.Redis != nil {
		bookingService.SetIdempotencyGuard(bookings.NewRedisIdempotencyGuard(r.db.Redis, constants.TTL_BOOKING_IDEMPOTENCY))
	}
	r.bookingService = bookingService

	documents := bookings.NewDocumentRenderer(r.config.JWT.Secret)
	bookings.SetupBookingRoutes(rg, bookings.NewController(bookingService, documents), r.config)
}

func (r *Router) setupPaymentRoutes(rg *gin.RouterGroup) {
	paymentService := payments.NewService(r.bookingService, payments.NewGateway(r.config))
	controller := payments.NewController(paymentService, r.config.Payments.StripeWebhookSecret)

	payments.SetupPaymentRoutes(rg, controller, r.config)
}
