package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"worldtour/internal/bookings"
	"worldtour/internal/shared/middleware"
	"worldtour/internal/shared/utils/response"
	"worldtour/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxWebhookBody = int64(65536)

type Controller struct {
	service       *Service
	webhookSecret string
	log           *logger.Logger
}

func NewController(service *Service, webhookSecret string) *Controller {
	return &Controller{service: service, webhookSecret: webhookSecret, log: logger.GetDefault()}
}

// Checkout godoc
// @Summary Open a payment session for a pending booking
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 201 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Failure 502 {object} response.StandardApiResponse
// @Router /bookings/{id}/checkout [post]
func (c *Controller) Checkout(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid booking ID", nil)
		return
	}

	checkout, err := c.service.StartCheckout(ctx.Request.Context(), middleware.RequestContextFrom(ctx), bookingID)
	if err != nil {
		respondPaymentError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusCreated, "Payment session created", checkout)
}

// StripeWebhook verifies and applies Stripe checkout events
func (c *Controller) StripeWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		ctx.Status(http.StatusRequestEntityTooLarge)
		return
	}

	event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), c.webhookSecret)
	if err != nil {
		c.log.Warn("Stripe webhook signature rejected", "error", err.Error())
		ctx.Status(http.StatusBadRequest)
		return
	}

	var succeeded bool
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		succeeded = true
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		succeeded = false
	default:
		ctx.Status(http.StatusNoContent)
		return
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		c.log.Warn("Failed to parse Stripe checkout session", "event_id", event.ID, "error", err.Error())
		ctx.Status(http.StatusBadRequest)
		return
	}

	// delayed methods complete unpaid and report later through async_payment_*
	if event.Type == "checkout.session.completed" && cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		ctx.Status(http.StatusNoContent)
		return
	}

	var reference string
	if succeeded {
		reference = cs.ID
		if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
			reference = cs.PaymentIntent.ID
		}
	} else {
		reference = string(event.Type)
	}

	c.applyResult(ctx, PaymentResult{
		SessionID: cs.ID,
		BookingID: cs.Metadata["booking_id"],
		Succeeded: succeeded,
		Reference: reference,
	})
}

type simulatedResultRequest struct {
	Succeeded *bool  `json:"succeeded" binding:"required"`
	Reference string `json:"reference"`
}

// SimulatedResult godoc
// @Summary Resolve a simulated payment session
// @Tags payments
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Param request body simulatedResultRequest true "Outcome"
// @Success 200 {object} response.StandardApiResponse
// @Router /payments/simulated/{session_id} [post]
func (c *Controller) SimulatedResult(ctx *gin.Context) {
	var req simulatedResultRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	reference := req.Reference
	if *req.Succeeded && reference == "" {
		reference = "sim_pay_" + uuid.NewString()
	}

	booking, err := c.service.HandlePaymentResult(ctx.Request.Context(), PaymentResult{
		SessionID: ctx.Param("session_id"),
		Succeeded: *req.Succeeded,
		Reference: reference,
	})
	if err != nil {
		respondPaymentError(ctx, err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Payment result applied", booking.ToResponse())
}

func (c *Controller) applyResult(ctx *gin.Context, result PaymentResult) {
	booking, err := c.service.HandlePaymentResult(ctx.Request.Context(), result)
	switch {
	case err == nil:
		c.log.Info("Payment result applied", "booking_id", booking.ID.String(), "status", booking.Status.String())
		ctx.Status(http.StatusOK)
	case errors.Is(err, bookings.ErrBookingNotFound):
		c.log.Warn("Payment result for unknown session", "session_id", result.SessionID, "booking_id", result.BookingID)
		ctx.Status(http.StatusOK)
	case errors.Is(err, bookings.ErrInvalidStateTransition):
		// the booking left pending first, e.g. its hold expired before payment
		c.log.ErrorWithContext(ctx.Request.Context(), "payment result conflicts with booking state", err, map[string]interface{}{
			"session_id": result.SessionID,
			"booking_id": result.BookingID,
			"succeeded":  result.Succeeded,
			"reference":  result.Reference,
		})
		ctx.Status(http.StatusOK)
	default:
		c.log.ErrorWithContext(ctx.Request.Context(), "failed to apply payment result", err, map[string]interface{}{
			"session_id": result.SessionID,
		})
		ctx.Status(http.StatusInternalServerError)
	}
}

func respondPaymentError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPaymentGateway):
		response.RespondError(ctx, http.StatusBadGateway, "Payment provider unavailable, please retry", nil)
	case errors.Is(err, bookings.ErrInvalidStateTransition):
		response.RespondError(ctx, http.StatusConflict, err.Error(), gin.H{"reason": "InvalidStateTransition"})
	case errors.Is(err, bookings.ErrForbidden):
		response.RespondError(ctx, http.StatusForbidden, "You are not allowed to access this booking", nil)
	case errors.Is(err, bookings.ErrBookingNotFound):
		response.RespondError(ctx, http.StatusNotFound, "Booking not found", nil)
	default:
		response.RespondError(ctx, http.StatusInternalServerError, "Internal server error", nil)
	}
}
