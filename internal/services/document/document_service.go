package document

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/metrics"
	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/security/audit"
	"github.com/civilregistry/backend/internal/storage"
	"github.com/civilregistry/backend/internal/storage/uploads"
)

// FileStore keeps the uploaded file bytes
type FileStore interface {
	Save(ctx context.Context, userID uuid.UUID, file uploads.Incoming) (*uploads.StoredFile, error)
	Remove(ctx context.Context, path string) error
}

// MirrorScheduler queues a rebuild of an application's documents mirror
type MirrorScheduler interface {
	ScheduleReconcile(ctx context.Context, applicationID uuid.UUID) error
}

// Service manages uploaded documents and keeps the application mirror in step.
// Document records are authoritative. A failed mirror write is handed to the
// MirrorScheduler and repaired later from the documents table.
type Service struct {
	docs      storage.DocumentStore
	apps      storage.ApplicationStore
	files     FileStore
	scheduler MirrorScheduler
	audit     audit.Recorder
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewService creates a document Service
func NewService(
	docs storage.DocumentStore,
	apps storage.ApplicationStore,
	files FileStore,
	scheduler MirrorScheduler,
	recorder audit.Recorder,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *Service {
	return &Service{
		docs:      docs,
		apps:      apps,
		files:     files,
		scheduler: scheduler,
		audit:     recorder,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// UploadInput describes a new supporting document
type UploadInput struct {
	ApplicationID uuid.UUID
	DocumentType  models.DocumentType
	File          uploads.Incoming
}

// VerifyInput is an officer's verification decision
type VerifyInput struct {
	Status          models.DocumentStatus `json:"status"`
	RejectionReason string                `json:"rejectionReason"`
}

// Upload stores the file against one of the caller's applications
func (s *Service) Upload(ctx context.Context, caller authz.Caller, input UploadInput) (*models.Document, error) {
	if !caller.Can(authz.CapDocumentsUpload) {
		return nil, apperror.Unauthorized("Not authorized to upload documents")
	}
	if !input.DocumentType.Valid() {
		return nil, apperror.Validation("Please provide a valid document type")
	}

	app, err := s.apps.FindByID(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(app.ApplicantID) {
		return nil, apperror.NotFound("Application not found")
	}

	stored, err := s.files.Save(ctx, caller.ID, input.File)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		UserID:        caller.ID,
		ApplicationID: app.ID,
		DocumentType:  input.DocumentType,
		FileName:      stored.FileName,
		OriginalName:  stored.OriginalName,
		MimeType:      stored.MimeType,
		Size:          stored.Size,
		Path:          stored.Path,
		UploadDate:    s.now(),
		Status:        models.DocumentStatusPendingVerification,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		s.removeFile(ctx, stored.Path)
		return nil, err
	}

	app.AppendDocumentRef(doc.Ref())
	if err := s.apps.SetDocuments(ctx, app.ID, app.DocumentRefs()); err != nil {
		s.scheduleRepair(ctx, app.ID, err)
	}

	s.metrics.ObserveUpload()
	s.log.WithFields(logrus.Fields{
		"document_id":    doc.ID,
		"application_id": app.ID,
		"document_type":  doc.DocumentType,
	}).Info("document uploaded")

	return doc, nil
}

// Verify records an officer's decision and propagates it into the mirror
func (s *Service) Verify(ctx context.Context, caller authz.Caller, id uuid.UUID, input VerifyInput) (*models.Document, error) {
	if !caller.Can(authz.CapDocumentsVerify) {
		return nil, apperror.Unauthorized("Not authorized to verify documents")
	}
	if input.Status != models.DocumentStatusVerified && input.Status != models.DocumentStatusRejected {
		return nil, apperror.Validation(`Invalid status. Must be "verified" or "rejected"`)
	}

	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	verifier := caller.ID
	doc.Status = input.Status
	doc.VerificationDate = &now
	doc.VerifiedBy = &verifier
	if input.Status == models.DocumentStatusRejected && input.RejectionReason != "" {
		doc.RejectionReason = input.RejectionReason
	} else if input.Status == models.DocumentStatusVerified {
		doc.RejectionReason = ""
	}

	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.propagateStatus(ctx, doc)

	s.metrics.ObserveVerification(string(doc.Status))
	s.audit.Record(ctx, audit.Event{
		Type:        audit.EventTypeDocumentVerify,
		Description: input.RejectionReason,
		ActorID:     caller.ID,
		TargetID:    doc.ID,
		Success:     true,
		Metadata: map[string]interface{}{
			"status":         doc.Status,
			"application_id": doc.ApplicationID,
		},
	})

	return doc, nil
}

func (s *Service) propagateStatus(ctx context.Context, doc *models.Document) {
	app, err := s.apps.FindByID(ctx, doc.ApplicationID)
	if apperror.Is(err, apperror.KindNotFound) {
		return
	}
	if err != nil {
		s.scheduleRepair(ctx, doc.ApplicationID, err)
		return
	}

	if !app.SetDocumentRefStatus(doc.ID, doc.Status) {
		s.scheduleRepair(ctx, app.ID, errors.New("mirror entry missing"))
		return
	}
	if err := s.apps.SetDocuments(ctx, app.ID, app.DocumentRefs()); err != nil {
		s.scheduleRepair(ctx, app.ID, err)
	}
}

// Get returns a document visible to the caller
func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(doc.UserID, authz.CapDocumentsReadAny) {
		return nil, apperror.Unauthorized("Not authorized to access this document")
	}
	return doc, nil
}

// ListByApplication returns the caller's documents for an application, or
// every document of it for officers
func (s *Service) ListByApplication(ctx context.Context, caller authz.Caller, applicationID uuid.UUID) ([]models.Document, error) {
	if caller.Can(authz.CapDocumentsReadAny) {
		return s.docs.ListByApplication(ctx, applicationID, nil)
	}
	userID := caller.ID
	return s.docs.ListByApplication(ctx, applicationID, &userID)
}

// Delete removes a document, its mirror entry and its stored file
func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !caller.CanAccess(doc.UserID, authz.CapDocumentsDeleteAny) {
		return apperror.Unauthorized("Not authorized to delete this document")
	}

	app, err := s.apps.FindByID(ctx, doc.ApplicationID)
	if err != nil && !apperror.Is(err, apperror.KindNotFound) {
		return err
	}
	if app != nil && !caller.Can(authz.CapDocumentsDeleteAny) && app.ApplicationStatus != models.StatusDraft {
		return apperror.InvalidTransition("Cannot delete document once application is submitted")
	}

	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		return err
	}

	if app != nil {
		if !app.RemoveDocumentRef(doc.ID) {
			s.scheduleRepair(ctx, app.ID, errors.New("mirror entry missing"))
		} else if err := s.apps.SetDocuments(ctx, app.ID, app.DocumentRefs()); err != nil {
			s.scheduleRepair(ctx, app.ID, err)
		}
	}

	s.removeFile(ctx, doc.Path)

	if !caller.Owns(doc.UserID) {
		s.audit.Record(ctx, audit.Event{
			Type:     audit.EventTypeDocumentDelete,
			ActorID:  caller.ID,
			TargetID: doc.ID,
			Success:  true,
			Metadata: map[string]interface{}{"application_id": doc.ApplicationID},
		})
	}
	s.log.WithField("document_id", doc.ID).Info("document deleted")

	return nil
}

// ReconcileMirror rebuilds an application's documents mirror from the
// documents table, ordered by upload date
func (s *Service) ReconcileMirror(ctx context.Context, applicationID uuid.UUID) error {
	docs, err := s.docs.ListByApplication(ctx, applicationID, nil)
	if err != nil {
		s.metrics.ObserveReconcile(false)
		return err
	}

	refs := make([]models.DocumentRef, 0, len(docs))
	for i := range docs {
		refs = append(refs, docs[i].Ref())
	}

	err = s.apps.SetDocuments(ctx, applicationID, refs)
	if apperror.Is(err, apperror.KindNotFound) {
		return nil
	}
	s.metrics.ObserveReconcile(err == nil)
	return err
}

// ReconcileAll rebuilds every mirror and returns how many were rebuilt
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.apps.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	repaired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := s.ReconcileMirror(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		repaired++
	}

	return repaired, errors.Join(errs...)
}

func (s *Service) scheduleRepair(ctx context.Context, applicationID uuid.UUID, cause error) {
	entry := s.log.WithFields(logrus.Fields{
		"application_id": applicationID,
		"cause":          cause.Error(),
	})
	entry.Warn("documents mirror out of date, scheduling reconciliation")

	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleReconcile(ctx, applicationID); err != nil {
		entry.WithError(err).Error("failed to schedule mirror reconciliation")
	}
}

func (s *Service) removeFile(ctx context.Context, path string) {
	if err := s.files.Remove(ctx, path); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("failed to remove stored file")
	}
}
