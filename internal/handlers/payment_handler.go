package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/services/payment"
)

// PaymentHandler serves payment endpoints
type PaymentHandler struct {
	responder
	payments *payment.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *payment.PaymentService, dev bool, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{
		responder: newResponder(dev, log),
		payments:  payments,
	}
}

// Create opens a payment intent for one of the caller's applications
func (h *PaymentHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var input payment.CreateInput
	if !h.bindJSON(c, &input) {
		return
	}

	result, err := h.payments.Create(c.Request.Context(), caller, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, result)
}

// ListMine returns the caller's payments
func (h *PaymentHandler) ListMine(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	payments, err := h.payments.ListMine(c.Request.Context(), caller)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.list(c, len(payments), payments)
}

// Get returns one payment
func (h *PaymentHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Payment")
	if !ok {
		return
	}

	p, err := h.payments.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, p)
}

// ListByApplication returns the payments made for an application
func (h *PaymentHandler) ListByApplication(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	applicationID, ok := h.paramID(c, "applicationId", "Application")
	if !ok {
		return
	}

	payments, err := h.payments.ListByApplication(c.Request.Context(), caller, applicationID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.list(c, len(payments), payments)
}
