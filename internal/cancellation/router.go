package cancellation

import (
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCancellationRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	policies := rg.Group("/catalog/cancellation-policies")
	{
		policies.GET("/:item_id", controller.GetCancellationPolicy) // GET /api/v1/catalog/cancellation-policies/:item_id
	}

	adminPolicies := rg.Group("/catalog/cancellation-policies")
	adminPolicies.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin())
	{
		adminPolicies.PUT("/:item_id", controller.UpsertCancellationPolicy) // PUT /api/v1/catalog/cancellation-policies/:item_id
	}

	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireRoles("USER", "ADMIN"))
	{
		bookings.GET("/:id/cancellation", controller.GetBookingCancellation) // GET /api/v1/bookings/:id/cancellation
	}

	users := rg.Group("/users")
	users.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireRoles("USER", "ADMIN"))
	{
		users.GET("/cancellations", controller.GetUserCancellations) // GET /api/v1/users/cancellations
	}
}
