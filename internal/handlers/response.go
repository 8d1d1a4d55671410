package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/middleware"
)

// responder writes the JSON envelope shared by every endpoint
type responder struct {
	dev bool
	log logrus.FieldLogger
}

func newResponder(dev bool, log logrus.FieldLogger) responder {
	return responder{dev: dev, log: log}
}

func (r responder) ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func (r responder) list(c *gin.Context, count int, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count, "data": data})
}

// fail maps err to its status code. Internal messages only reach the
// client in development.
func (r responder) fail(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)
	message := apperror.Message(err)

	if kind == apperror.KindInternal {
		r.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("request failed")
		message = "Server Error"
		if r.dev {
			message = err.Error()
		}
	}

	c.JSON(status, gin.H{"success": false, "error": message})
}

func (r responder) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		r.fail(c, apperror.Validation("Invalid request body"))
		return false
	}
	return true
}

// paramID parses a path parameter as a uuid. Malformed ids cannot match any
// record, so they are reported as missing.
func (r responder) paramID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		r.fail(c, apperror.NotFound(what+" not found"))
		return uuid.Nil, false
	}
	return id, true
}

func (r responder) caller(c *gin.Context) (authz.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		r.fail(c, apperror.Unauthorized("Not authorized to access this route"))
		return authz.Caller{}, false
	}
	return caller, true
}
