package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/services/user"
)

// UserHandler handles account related requests
type UserHandler struct {
	responder
	users *user.Service
}

// MFACodeRequest carries a TOTP code to confirm MFA enrolment
type MFACodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *user.Service, dev bool, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{
		responder: newResponder(dev, log),
		users:     users,
	}
}

// Register creates an applicant account and signs it in
func (h *UserHandler) Register(c *gin.Context) {
	var input user.RegisterInput
	if !h.bindJSON(c, &input) {
		return
	}

	session, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, session)
}

// Login exchanges credentials for a bearer token
func (h *UserHandler) Login(c *gin.Context) {
	var input user.LoginInput
	if !h.bindJSON(c, &input) {
		return
	}

	session, err := h.users.Login(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, session)
}

// Me returns the caller's profile
func (h *UserHandler) Me(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	u, err := h.users.Me(c.Request.Context(), caller)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, u)
}

// SetupMFA issues a new TOTP secret for the caller
func (h *UserHandler) SetupMFA(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	key, err := h.users.SetupMFA(c.Request.Context(), caller)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, key)
}

// EnableMFA turns MFA on once the caller proves they hold the secret
func (h *UserHandler) EnableMFA(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req MFACodeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	u, err := h.users.EnableMFA(c.Request.Context(), caller, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, u)
}
