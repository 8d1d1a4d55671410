package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/services/application"
	"github.com/civilregistry/backend/internal/storage"
)

// ApplicationHandler serves the application workflow endpoints
type ApplicationHandler struct {
	responder
	applications *application.Service
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(applications *application.Service, dev bool, log logrus.FieldLogger) *ApplicationHandler {
	return &ApplicationHandler{
		responder:    newResponder(dev, log),
		applications: applications,
	}
}

// Create starts a draft application for the caller
func (h *ApplicationHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var input application.CreateInput
	if !h.bindJSON(c, &input) {
		return
	}

	app, err := h.applications.Create(c.Request.Context(), caller, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, app)
}

// ListMine returns the caller's applications, newest first
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	apps, err := h.applications.ListMine(c.Request.Context(), caller)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.list(c, len(apps), apps)
}

// ListAll returns every application matching the status, applicant and type query filters
func (h *ApplicationHandler) ListAll(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	filter := storage.ApplicationFilter{
		Status: models.ApplicationStatus(c.Query("status")),
		Type:   models.ApplicationType(c.Query("type")),
	}
	if applicant := c.Query("applicant"); applicant != "" {
		id, err := uuid.Parse(applicant)
		if err != nil {
			h.list(c, 0, []models.Application{})
			return
		}
		filter.ApplicantID = &id
	}

	apps, err := h.applications.ListAll(c.Request.Context(), caller, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.list(c, len(apps), apps)
}

// Get returns one application
func (h *ApplicationHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Application")
	if !ok {
		return
	}

	app, err := h.applications.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, app)
}

// Update edits a draft application, or any application for an admin
func (h *ApplicationHandler) Update(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Application")
	if !ok {
		return
	}

	var input application.UpdateInput
	if !h.bindJSON(c, &input) {
		return
	}

	app, err := h.applications.Update(c.Request.Context(), caller, id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, app)
}

// Submit moves a draft application to submitted
func (h *ApplicationHandler) Submit(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Application")
	if !ok {
		return
	}

	app, err := h.applications.Submit(c.Request.Context(), caller, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, app)
}

// ChangeStatus applies an officer's status decision
func (h *ApplicationHandler) ChangeStatus(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Application")
	if !ok {
		return
	}

	var change application.StatusChange
	if !h.bindJSON(c, &change) {
		return
	}

	app, err := h.applications.ChangeStatus(c.Request.Context(), caller, id, change)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, app)
}

// Delete removes an application
func (h *ApplicationHandler) Delete(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Application")
	if !ok {
		return
	}

	if err := h.applications.Delete(c.Request.Context(), caller, id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{})
}
