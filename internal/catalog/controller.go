package catalog

import (
	"errors"
	"net/http"

	"worldtour/internal/pricing"
	"worldtour/internal/shared/middleware"
	"worldtour/internal/shared/utils/response"
	"worldtour/internal/shared/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller interface {
	ListItems(c *gin.Context)
	GetItem(c *gin.Context)
	GetItemBySlug(c *gin.Context)
	Quote(c *gin.Context)
	CreateItem(c *gin.Context)
	SetAvailability(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// ListItems godoc
// @Summary Find available catalog items
// @Tags catalog
// @Produce json
// @Param kind query string false "destination, room_type, flight or package"
// @Param country query string false "Country"
// @Param min_price query number false "Minimum unit price"
// @Param max_price query number false "Maximum unit price"
// @Success 200 {object} response.StandardApiResponse
// @Router /catalog/items [get]
func (ctrl *controller) ListItems(c *gin.Context) {
	var query ItemListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid query parameters", validationDetails(err))
		return
	}
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MinPrice > *query.MaxPrice {
		response.RespondError(c, http.StatusBadRequest, "min_price must not exceed max_price", nil)
		return
	}

	items, err := ctrl.service.FindAvailableItems(c.Request.Context(), middleware.RequestContextFrom(c), query.ToItemQuery())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "Failed to retrieve catalog items", nil)
		return
	}
	response.RespondSuccess(c, http.StatusOK, "Catalog items retrieved successfully", items)
}

// GetItem godoc
// @Summary Get a catalog item
// @Tags catalog
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /catalog/items/{id} [get]
func (ctrl *controller) GetItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid item ID", nil)
		return
	}

	item, err := ctrl.service.GetItem(c.Request.Context(), middleware.RequestContextFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondSuccess(c, http.StatusOK, "Catalog item retrieved successfully", item)
}

func (ctrl *controller) GetItemBySlug(c *gin.Context) {
	item, err := ctrl.service.GetItemBySlug(c.Request.Context(), middleware.RequestContextFrom(c), c.Param("slug"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondSuccess(c, http.StatusOK, "Catalog item retrieved successfully", item)
}

// Quote godoc
// @Summary Price a party against an item without reserving anything
// @Tags catalog
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param request body QuoteRequest true "Dates and party size"
// @Success 200 {object} response.StandardApiResponse
// @Router /catalog/items/{id}/quote [post]
func (ctrl *controller) Quote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid item ID", nil)
		return
	}

	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", validationDetails(err))
		return
	}

	quote, err := ctrl.service.Quote(c.Request.Context(), middleware.RequestContextFrom(c), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondSuccess(c, http.StatusOK, "Quote computed successfully", quote)
}

func (ctrl *controller) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", validationDetails(err))
		return
	}

	item, err := ctrl.service.CreateItem(c.Request.Context(), middleware.RequestContextFrom(c), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondSuccess(c, http.StatusCreated, "Catalog item created successfully", item)
}

func (ctrl *controller) SetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid item ID", nil)
		return
	}

	var req SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", validationDetails(err))
		return
	}

	if err := ctrl.service.SetAvailability(c.Request.Context(), id, *req.Available); err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondSuccess(c, http.StatusOK, "Availability updated successfully", gin.H{"id": id, "available": *req.Available})
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		response.RespondError(c, http.StatusNotFound, "Catalog item not found", nil)
	case errors.Is(err, ErrInvalidItem), errors.Is(err, pricing.ErrInvalidArgument):
		response.RespondError(c, http.StatusBadRequest, err.Error(), nil)
	default:
		response.RespondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func validationDetails(err error) interface{} {
	if fields := validation.FieldErrors(err); fields != nil {
		return fields
	}
	return err.Error()
}
