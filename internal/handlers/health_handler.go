package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness
type HealthHandler struct {
	version string
	started time.Time
	now     func() time.Time
}

// NewHealthHandler creates a health handler for a process started now
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version, started: time.Now(), now: time.Now}
}

// Health returns process uptime in seconds
func (h *HealthHandler) Health(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"uptime":    now.Sub(h.started).Seconds(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// Root identifies the service
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Civil registry API",
		"version": h.version,
	})
}
