package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/services/payment"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body
const SignatureHeader = "X-Signature"

// WebhookHandler receives payment provider callbacks
type WebhookHandler struct {
	responder
	payments *payment.PaymentService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(payments *payment.PaymentService, dev bool, log logrus.FieldLogger) *WebhookHandler {
	return &WebhookHandler{
		responder: newResponder(dev, log),
		payments:  payments,
	}
}

// HandlePaymentWebhook verifies the signature over the raw body before
// anything is decoded
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, apperror.Validation("Invalid request body"))
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader(SignatureHeader)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
}
