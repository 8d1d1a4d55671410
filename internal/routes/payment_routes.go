package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/civilregistry/backend/internal/handlers"
)

// RegisterPaymentRoutes registers the authenticated payment routes
func RegisterPaymentRoutes(api *gin.RouterGroup, paymentHandler *handlers.PaymentHandler, auth gin.HandlerFunc) {
	payments := api.Group("/payments")
	payments.Use(auth)
	{
		payments.POST("/create", paymentHandler.Create)
		payments.GET("", paymentHandler.ListMine)
		payments.GET("/application/:applicationId", paymentHandler.ListByApplication)
		payments.GET("/:id", paymentHandler.Get)
	}
}
