package payments

import (
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes configures checkout and payment result routes
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireRoles("USER", "ADMIN"))
	{
		bookings.POST("/:id/checkout", controller.Checkout) // POST /api/v1/bookings/:id/checkout
	}

	payments := rg.Group("/payments")
	if cfg.UsesStripe() {
		payments.POST("/webhooks/stripe", controller.StripeWebhook) // POST /api/v1/payments/webhooks/stripe
	} else {
		payments.POST("/simulated/:session_id", controller.SimulatedResult) // POST /api/v1/payments/simulated/:session_id
	}
}
