package cancellation

import (
	"errors"
	"net/http"

	"worldtour/internal/shared/middleware"
	"worldtour/internal/shared/utils/response"
	"worldtour/internal/shared/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Controller handles HTTP requests for cancellation policies and records
type Controller struct {
	service Service
}

// NewController creates a new cancellation controller
func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetCancellationPolicy godoc
// @Summary Get the cancellation policy of a catalog item
// @Tags cancellation
// @Produce json
// @Param item_id path string true "Catalog item ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /catalog/cancellation-policies/{item_id} [get]
func (c *Controller) GetCancellationPolicy(ctx *gin.Context) {
	itemID, err := uuid.Parse(ctx.Param("item_id"))
	if err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid item ID", nil)
		return
	}

	policy, err := c.service.GetPolicy(ctx.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			response.RespondError(ctx, http.StatusNotFound, "Cancellation policy not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, "Failed to retrieve cancellation policy", nil)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Cancellation policy retrieved successfully", policy)
}

// UpsertCancellationPolicy godoc
// @Summary Create or replace the cancellation policy of a catalog item
// @Tags cancellation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item_id path string true "Catalog item ID"
// @Param request body CancellationPolicyRequest true "Policy terms"
// @Success 200 {object} response.StandardApiResponse
// @Router /catalog/cancellation-policies/{item_id} [put]
func (c *Controller) UpsertCancellationPolicy(ctx *gin.Context) {
	itemID, err := uuid.Parse(ctx.Param("item_id"))
	if err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid item ID", nil)
		return
	}

	var req CancellationPolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		details := interface{}(err.Error())
		if fields := validation.FieldErrors(err); fields != nil {
			details = fields
		}
		response.RespondError(ctx, http.StatusBadRequest, "Invalid request body", details)
		return
	}

	policy, err := c.service.UpsertPolicy(ctx.Request.Context(), itemID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidPolicy) {
			response.RespondError(ctx, http.StatusBadRequest, err.Error(), nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, "Failed to save cancellation policy", nil)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Cancellation policy saved successfully", policy)
}

// GetBookingCancellation returns the cancellation record of a booking the caller owns
func (c *Controller) GetBookingCancellation(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid booking ID", nil)
		return
	}

	record, err := c.service.GetCancellationByBooking(ctx.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, ErrCancellationNotFound) {
			response.RespondError(ctx, http.StatusNotFound, "Cancellation not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, "Failed to retrieve cancellation", nil)
		return
	}

	if !middleware.RequestContextFrom(ctx).CanActOn(record.UserID) {
		// same answer as a missing record, so ids cannot be probed
		response.RespondError(ctx, http.StatusNotFound, "Cancellation not found", nil)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Cancellation retrieved successfully", record)
}

// GetUserCancellations handles GET /api/v1/users/cancellations
func (c *Controller) GetUserCancellations(ctx *gin.Context) {
	rc := middleware.RequestContextFrom(ctx)
	if !rc.Authenticated() {
		response.RespondError(ctx, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	records, err := c.service.GetUserCancellations(ctx.Request.Context(), rc.UserID)
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, "Failed to retrieve cancellations", nil)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Cancellations retrieved successfully", gin.H{
		"cancellations": records,
		"count":         len(records),
	})
}
