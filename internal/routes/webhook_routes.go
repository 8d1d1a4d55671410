package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/civilregistry/backend/internal/handlers"
)

// RegisterWebhookRoutes registers provider callbacks. They carry no bearer
// token, the handler checks the body signature instead.
func RegisterWebhookRoutes(api *gin.RouterGroup, webhookHandler *handlers.WebhookHandler) {
	api.POST("/payments/webhook", webhookHandler.HandlePaymentWebhook)
}
