package currency

import "github.com/gin-gonic/gin"

func SetupCurrencyRoutes(router *gin.RouterGroup, controller *Controller) {
	currency := router.Group("/currency")
	{
		currency.GET("/rates", controller.GetRates)   // GET /api/v1/currency/rates
		currency.GET("/convert", controller.Convert) // GET /api/v1/currency/convert?amount=&from=&to=
	}
}
