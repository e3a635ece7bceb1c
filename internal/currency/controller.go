package currency

import (
	"errors"
	"net/http"
	"strconv"

	"worldtour/internal/pricing"
	"worldtour/internal/shared/requestctx"
	"worldtour/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetRates godoc
// @Summary Exchange rates
// @Tags currency
// @Produce json
// @Success 200 {object} response.StandardApiResponse
// @Router /currency/rates [get]
func (ctrl *Controller) GetRates(c *gin.Context) {
	rates, err := ctrl.service.Rates(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "Failed to load exchange rates", nil)
		return
	}
	response.RespondSuccess(c, http.StatusOK, "Exchange rates retrieved successfully", rates)
}

// Convert godoc
// @Summary Convert an amount between currencies
// @Tags currency
// @Produce json
// @Param amount query number true "Amount in major units"
// @Param from query string true "Source currency"
// @Param to query string true "Target currency"
// @Success 200 {object} response.StandardApiResponse
// @Router /currency/convert [get]
func (ctrl *Controller) Convert(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount < 0 {
		response.RespondError(c, http.StatusBadRequest, "amount must be a non-negative number", nil)
		return
	}
	from := requestctx.NormalizeCurrency(c.Query("from"))
	to := requestctx.NormalizeCurrency(c.Query("to"))
	if from == "" || to == "" {
		response.RespondError(c, http.StatusBadRequest, "from and to must be ISO 4217 codes", nil)
		return
	}

	money, err := pricing.FromMajor(amount, from)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	converted, err := ctrl.service.Convert(c.Request.Context(), money, to)
	if err != nil {
		if errors.Is(err, ErrUnsupportedCurrency) {
			response.RespondError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "Failed to convert amount", nil)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Amount converted successfully", gin.H{
		"from":            from,
		"to":              to,
		"amount":          money.Major(),
		"converted":       converted.Major(),
		"converted_minor": converted.Amount,
	})
}
