package bookings

import (
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireRoles("USER", "ADMIN"))
	{
		bookings.POST("", controller.CreateBooking)                 // POST /api/v1/bookings
		bookings.GET("/:id", controller.GetBooking)                 // GET /api/v1/bookings/:id
		bookings.POST("/:id/cancel", controller.CancelBooking)      // POST /api/v1/bookings/:id/cancel
		bookings.GET("/:id/qr.png", controller.GetQRCode)           // GET /api/v1/bookings/:id/qr.png
		bookings.GET("/:id/itinerary.pdf", controller.GetItinerary) // GET /api/v1/bookings/:id/itinerary.pdf
	}

	// User-specific booking routes
	users := rg.Group("/users")
	users.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireRoles("USER", "ADMIN"))
	{
		users.GET("/bookings", controller.GetUserBookings) // GET /api/v1/users/bookings
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin())
	{
		admin.GET("/bookings", controller.GetAllBookings) // GET /api/v1/admin/bookings
	}
}

// Route definitions for reference:
//
// BOOKING CREATION
// POST   /api/v1/bookings                             - Price, reserve capacity, create pending booking
// Request body: { "target_kind": "room_type", "item_id": "...", "start_date": "...", "end_date": "...", "party_size": 2 }
// Header:       Idempotency-Key (optional)
//
// BOOKING RETRIEVAL
// GET    /api/v1/bookings/:id                         - Get specific booking (owner or admin)
// GET    /api/v1/bookings/:id/qr.png                  - QR pass, confirmed bookings only
// GET    /api/v1/bookings/:id/itinerary.pdf           - Itinerary PDF, confirmed bookings only
//
// BOOKING CANCELLATION
// POST   /api/v1/bookings/:id/cancel                  - Cancel a pending or confirmed booking
//
// LISTINGS
// GET    /api/v1/users/bookings?page=1&limit=10       - Caller's bookings
// GET    /api/v1/admin/bookings?status=&item_id=      - All bookings (admin)
//
// Flow:
// 1. POST /bookings creates a pending booking holding capacity for BOOKING_HOLD_TTL
// 2. POST /bookings/:id/checkout opens a payment session
// 3. The payment result confirms the booking or cancels it and frees capacity
// 4. Unpaid holds are expired by the sweeper
