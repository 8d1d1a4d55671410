package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/services/biometric"
)

// BiometricHandler serves biometric capture endpoints
type BiometricHandler struct {
	responder
	biometrics *biometric.Service
}

// NewBiometricHandler creates a new biometric handler
func NewBiometricHandler(biometrics *biometric.Service, dev bool, log logrus.FieldLogger) *BiometricHandler {
	return &BiometricHandler{
		responder:  newResponder(dev, log),
		biometrics: biometrics,
	}
}

// Add stores a biometric capture
func (h *BiometricHandler) Add(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var input biometric.AddInput
	if !h.bindJSON(c, &input) {
		return
	}

	record, err := h.biometrics.Add(c.Request.Context(), caller, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, record)
}

// ListForUser returns the captures stored for a user
func (h *BiometricHandler) ListForUser(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	userID, ok := h.paramID(c, "userId", "User")
	if !ok {
		return
	}

	records, err := h.biometrics.ListForUser(c.Request.Context(), caller, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.list(c, len(records), records)
}

// Delete removes a capture
func (h *BiometricHandler) Delete(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Biometric record")
	if !ok {
		return
	}

	if err := h.biometrics.Delete(c.Request.Context(), caller, id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{})
}
