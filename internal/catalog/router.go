package catalog

import (
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCatalogRoutes(router *gin.RouterGroup, controller Controller, cfg *config.Config) {
	public := router.Group("/catalog/items")
	public.Use(middleware.OptionalAuthWithConfig(cfg))
	{
		public.GET("", controller.ListItems)
		public.GET("/:id", controller.GetItem)
		public.GET("/slug/:slug", controller.GetItemBySlug)
		public.POST("/:id/quote", controller.Quote)
	}

	admin := router.Group("/catalog/items")
	admin.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin())
	{
		admin.POST("", controller.CreateItem)
		admin.PATCH("/:id/availability", controller.SetAvailability)
	}
}

/*
Catalog Routes:
- GET   /api/v1/catalog/items                    - FindAvailableItems (kind, category, country, city, search, min_price, max_price, page, limit)
- GET   /api/v1/catalog/items/:id                - Item detail
- GET   /api/v1/catalog/items/slug/:slug         - Item detail by slug
- POST  /api/v1/catalog/items/:id/quote          - Price a party, no reservation
- POST  /api/v1/catalog/items                    - Create item (ADMIN)
- PATCH /api/v1/catalog/items/:id/availability   - Enable/disable item (ADMIN)
*/
