package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/services/document"
	"github.com/civilregistry/backend/internal/storage/uploads"
)

// DocumentHandler serves supporting document endpoints
type DocumentHandler struct {
	responder
	documents *document.Service
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *document.Service, dev bool, log logrus.FieldLogger) *DocumentHandler {
	return &DocumentHandler{
		responder: newResponder(dev, log),
		documents: documents,
	}
}

// Upload accepts a multipart form with the document file, documentType and applicationId
func (h *DocumentHandler) Upload(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	header, err := c.FormFile("document")
	if err != nil {
		h.fail(c, apperror.Validation("Please upload a file"))
		return
	}

	applicationID, err := uuid.Parse(c.PostForm("applicationId"))
	if err != nil {
		h.fail(c, apperror.NotFound("Application not found"))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, apperror.Internal("failed to read upload", err))
		return
	}
	defer file.Close()

	doc, err := h.documents.Upload(c.Request.Context(), caller, document.UploadInput{
		ApplicationID: applicationID,
		DocumentType:  models.DocumentType(c.PostForm("documentType")),
		File: uploads.Incoming{
			OriginalName: header.Filename,
			MimeType:     header.Header.Get("Content-Type"),
			Size:         header.Size,
			Content:      file,
		},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, doc)
}

// ListByApplication returns the documents attached to an application
func (h *DocumentHandler) ListByApplication(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	applicationID, ok := h.paramID(c, "applicationId", "Application")
	if !ok {
		return
	}

	docs, err := h.documents.ListByApplication(c.Request.Context(), caller, applicationID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.list(c, len(docs), docs)
}

// Get returns one document
func (h *DocumentHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Document")
	if !ok {
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, doc)
}

// Verify records an officer's verification decision
func (h *DocumentHandler) Verify(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Document")
	if !ok {
		return
	}

	var input document.VerifyInput
	if !h.bindJSON(c, &input) {
		return
	}

	doc, err := h.documents.Verify(c.Request.Context(), caller, id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, doc)
}

// Delete removes a document and its stored file
func (h *DocumentHandler) Delete(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "Document")
	if !ok {
		return
	}

	if err := h.documents.Delete(c.Request.Context(), caller, id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{})
}
