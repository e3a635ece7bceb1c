package bookings

import (
	"errors"
	"net/http"

	"worldtour/internal/catalog"
	"worldtour/internal/pricing"
	"worldtour/internal/shared/middleware"
	"worldtour/internal/shared/utils/response"
	"worldtour/internal/shared/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	documents *DocumentRenderer
}

func NewController(service Service, documents *DocumentRenderer) *Controller {
	return &Controller{service: service, documents: documents}
}

// CreateBooking godoc
// @Summary Book a catalog item
// @Description Prices the party, reserves capacity and creates a pending booking awaiting payment
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replays the original booking when reused"
// @Param request body CreateBookingRequest true "Booking request"
// @Success 201 {object} response.StandardApiResponse
// @Failure 400 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /bookings [post]
func (c *Controller) CreateBooking(ctx *gin.Context) {
	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid request body", validationDetails(err))
		return
	}
	req.IdempotencyKey = ctx.GetHeader("Idempotency-Key")

	booking, err := c.service.CreateBooking(ctx.Request.Context(), middleware.RequestContextFrom(ctx), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusCreated, "Booking created successfully", booking.ToResponse())
}

// GetBooking godoc
// @Summary Get a booking
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /bookings/{id} [get]
func (c *Controller) GetBooking(ctx *gin.Context) {
	bookingID, ok := bookingIDParam(ctx)
	if !ok {
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), middleware.RequestContextFrom(ctx), bookingID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Booking retrieved successfully", booking.ToResponse())
}

// CancelBooking godoc
// @Summary Cancel a booking
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body CancelBookingRequest false "Reason"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /bookings/{id}/cancel [post]
func (c *Controller) CancelBooking(ctx *gin.Context) {
	bookingID, ok := bookingIDParam(ctx)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondError(ctx, http.StatusBadRequest, "Invalid request body", validationDetails(err))
			return
		}
	}

	booking, err := c.service.CancelBooking(ctx.Request.Context(), middleware.RequestContextFrom(ctx), bookingID, req.Reason)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Booking cancelled successfully", booking.ToResponse())
}

// GetUserBookings handles GET /api/v1/users/bookings
func (c *Controller) GetUserBookings(ctx *gin.Context) {
	var query BookingListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid query parameters", validationDetails(err))
		return
	}
	query.UserID = ""

	list, err := c.service.ListUserBookings(ctx.Request.Context(), middleware.RequestContextFrom(ctx), query)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Bookings retrieved successfully", list)
}

// GetAllBookings handles GET /api/v1/admin/bookings
func (c *Controller) GetAllBookings(ctx *gin.Context) {
	var query BookingListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid query parameters", validationDetails(err))
		return
	}

	list, err := c.service.ListAllBookings(ctx.Request.Context(), query)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Bookings retrieved successfully", list)
}

// GetQRCode godoc
// @Summary Booking pass as a QR code
// @Tags bookings
// @Produce png
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {file} binary
// @Failure 409 {object} response.StandardApiResponse
// @Router /bookings/{id}/qr.png [get]
func (c *Controller) GetQRCode(ctx *gin.Context) {
	bookingID, ok := bookingIDParam(ctx)
	if !ok {
		return
	}

	booking, err := c.service.GetConfirmedBooking(ctx.Request.Context(), middleware.RequestContextFrom(ctx), bookingID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	png, err := c.documents.QRCode(booking)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

// GetItinerary godoc
// @Summary Itinerary PDF of a confirmed booking
// @Tags bookings
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {file} binary
// @Failure 409 {object} response.StandardApiResponse
// @Router /bookings/{id}/itinerary.pdf [get]
func (c *Controller) GetItinerary(ctx *gin.Context) {
	bookingID, ok := bookingIDParam(ctx)
	if !ok {
		return
	}

	booking, err := c.service.GetConfirmedBooking(ctx.Request.Context(), middleware.RequestContextFrom(ctx), bookingID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	pdf, err := c.documents.Itinerary(booking)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", "attachment; filename=itinerary-"+booking.BookingRef+".pdf")
	ctx.Data(http.StatusOK, "application/pdf", pdf)
}

func bookingIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid booking ID", nil)
		return uuid.Nil, false
	}
	return bookingID, true
}

// respondServiceError maps ledger errors onto HTTP statuses
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidDates),
		errors.Is(err, ErrInvalidPartySize),
		errors.Is(err, ErrInvalidTarget),
		errors.Is(err, pricing.ErrInvalidArgument):
		response.RespondError(ctx, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrNoCapacity):
		response.RespondError(ctx, http.StatusConflict, "Booking failed", gin.H{"reason": "NoCapacity"})
	case errors.Is(err, ErrItemUnavailable):
		response.RespondError(ctx, http.StatusConflict, "Booking failed", gin.H{"reason": "ItemUnavailable"})
	case errors.Is(err, ErrInvalidStateTransition):
		response.RespondError(ctx, http.StatusConflict, err.Error(), gin.H{"reason": "InvalidStateTransition"})
	case errors.Is(err, ErrNotConfirmed):
		response.RespondError(ctx, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ErrRequestInFlight):
		response.RespondError(ctx, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		response.RespondError(ctx, http.StatusForbidden, "You are not allowed to access this booking", nil)
	case errors.Is(err, ErrBookingNotFound):
		response.RespondError(ctx, http.StatusNotFound, "Booking not found", nil)
	case errors.Is(err, catalog.ErrItemNotFound):
		response.RespondError(ctx, http.StatusNotFound, "Catalog item not found", nil)
	default:
		response.RespondError(ctx, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func validationDetails(err error) interface{} {
	if fields := validation.FieldErrors(err); fields != nil {
		return fields
	}
	return err.Error()
}
