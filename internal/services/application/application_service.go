package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/metrics"
	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/security/audit"
	"github.com/civilregistry/backend/internal/storage"
	"github.com/civilregistry/backend/internal/utils"
)

// Validity periods of issued documents
const (
	nationalIDValidityYears = 10
	defaultValidityYears    = 5
)

var documentNumberPrefixes = map[models.ApplicationType]string{
	models.ApplicationTypeNationalID:              "NID",
	models.ApplicationTypePassport:                "P",
	models.ApplicationTypeEmergencyTravelDocument: "ETD",
	models.ApplicationTypeRenewal:                 "RN",
}

// Service runs the application status workflow
type Service struct {
	apps     storage.ApplicationStore
	audit    audit.Recorder
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	now      func() time.Time
	numberer func(prefix string) (string, error)
}

// NewService creates an application Service
func NewService(apps storage.ApplicationStore, recorder audit.Recorder, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{
		apps:     apps,
		audit:    recorder,
		metrics:  m,
		log:      log,
		now:      time.Now,
		numberer: utils.GenerateDocumentNumber,
	}
}

// CreateInput is the body of a new application
type CreateInput struct {
	ApplicationType models.ApplicationType `json:"applicationType"`
	PersonalInfo    models.PersonalInfo    `json:"personalInfo"`
	ContactInfo     models.ContactInfo     `json:"contactInfo"`
	AppointmentDate *time.Time             `json:"appointmentDate,omitempty"`
}

// UpdateInput holds the fields an update may replace. Nil fields are left alone.
type UpdateInput struct {
	ApplicationType *models.ApplicationType `json:"applicationType,omitempty"`
	PersonalInfo    *models.PersonalInfo    `json:"personalInfo,omitempty"`
	ContactInfo     *models.ContactInfo     `json:"contactInfo,omitempty"`
	AppointmentDate *time.Time              `json:"appointmentDate,omitempty"`
	OfficerNotes    *string                 `json:"officerNotes,omitempty"`
}

// StatusChange is an administrative status transition request
type StatusChange struct {
	Status models.ApplicationStatus `json:"status"`
	Notes  string                   `json:"notes"`
}

// Create stores a new draft application owned by the caller
func (s *Service) Create(ctx context.Context, caller authz.Caller, input CreateInput) (*models.Application, error) {
	if !caller.Can(authz.CapApplicationsCreate) {
		return nil, apperror.Unauthorized("Not authorized to create applications")
	}
	if !input.ApplicationType.Valid() {
		return nil, apperror.Validation("Please provide a valid application type")
	}
	personal, err := normalizePersonalInfo(input.PersonalInfo, s.now())
	if err != nil {
		return nil, err
	}
	if err := validateContactInfo(input.ContactInfo); err != nil {
		return nil, err
	}

	app := &models.Application{
		ApplicationType: input.ApplicationType,
		ApplicantID:     caller.ID,
		PersonalInfo:    personal,
		ContactInfo:     input.ContactInfo,
		AppointmentDate: input.AppointmentDate,
	}
	app.SetDocumentRefs(nil)
	app.RecordStatus(models.StatusDraft, caller.ID, "Application created", s.now())

	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(models.StatusDraft))
	s.log.WithFields(logrus.Fields{
		"application_id":   app.ID,
		"applicant_id":     caller.ID,
		"application_type": app.ApplicationType,
	}).Info("application created")

	return app, nil
}

// Get returns a single application visible to the caller
func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Application, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(app.ApplicantID, authz.CapApplicationsReadAny) {
		return nil, apperror.Unauthorized("Not authorized to view this application")
	}
	return app, nil
}

// ListMine returns the caller's applications, newest first
func (s *Service) ListMine(ctx context.Context, caller authz.Caller) ([]models.Application, error) {
	id := caller.ID
	return s.apps.List(ctx, storage.ApplicationFilter{ApplicantID: &id})
}

// ListAll returns every application matching filter, newest first
func (s *Service) ListAll(ctx context.Context, caller authz.Caller, filter storage.ApplicationFilter) ([]models.Application, error) {
	if !caller.Can(authz.CapApplicationsReadAny) {
		return nil, apperror.Unauthorized("Not authorized to view all applications")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.Validationf("Invalid status filter: %s", filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperror.Validationf("Invalid application type filter: %s", filter.Type)
	}
	return s.apps.List(ctx, filter)
}

// Update replaces descriptive fields. Applicants may only edit drafts.
func (s *Service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateInput) (*models.Application, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(app.ApplicantID, authz.CapApplicationsWriteAny) {
		return nil, apperror.Unauthorized("Not authorized to update this application")
	}
	if !caller.Can(authz.CapApplicationsWriteAny) && app.ApplicationStatus != models.StatusDraft {
		return nil, apperror.InvalidTransition("Cannot update application once submitted. Please contact support.")
	}
	if input.OfficerNotes != nil && !caller.Can(authz.CapApplicationsWriteAny) {
		return nil, apperror.Unauthorized("Not authorized to set officer notes")
	}

	if input.ApplicationType != nil {
		if !input.ApplicationType.Valid() {
			return nil, apperror.Validation("Please provide a valid application type")
		}
		app.ApplicationType = *input.ApplicationType
	}
	if input.PersonalInfo != nil {
		personal, err := normalizePersonalInfo(*input.PersonalInfo, s.now())
		if err != nil {
			return nil, err
		}
		app.PersonalInfo = personal
	}
	if input.ContactInfo != nil {
		if err := validateContactInfo(*input.ContactInfo); err != nil {
			return nil, err
		}
		app.ContactInfo = *input.ContactInfo
	}
	if input.AppointmentDate != nil {
		app.AppointmentDate = input.AppointmentDate
	}
	if input.OfficerNotes != nil {
		app.OfficerNotes = *input.OfficerNotes
	}

	if err := s.apps.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Submit moves the caller's own draft to submitted
func (s *Service) Submit(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Application, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(app.ApplicantID) {
		return nil, apperror.Unauthorized("Not authorized to submit this application")
	}
	if app.ApplicationStatus != models.StatusDraft {
		return nil, apperror.InvalidTransition("Application has already been submitted")
	}

	entry := app.RecordStatus(models.StatusSubmitted, caller.ID, "Application submitted by applicant", s.now())
	if err := s.apps.AppendStatus(ctx, app, entry); err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(models.StatusSubmitted))
	s.log.WithField("application_id", app.ID).Info("application submitted")

	return app, nil
}

// ChangeStatus applies an administrative transition and its side effects.
// Any status may be targeted except draft, and issued applications are final.
func (s *Service) ChangeStatus(ctx context.Context, caller authz.Caller, id uuid.UUID, change StatusChange) (*models.Application, error) {
	if !caller.Can(authz.CapApplicationsChangeStatus) {
		return nil, apperror.Unauthorized("Not authorized to change application status")
	}
	if change.Status == "" {
		return nil, apperror.Validation("Please provide a status")
	}
	if !change.Status.Valid() {
		return nil, apperror.Validationf("Invalid status: %s", change.Status)
	}

	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if change.Status == models.StatusDraft {
		return nil, apperror.InvalidTransition("Cannot move an application back to draft")
	}
	if app.ApplicationStatus == models.StatusIssued {
		return nil, apperror.InvalidTransition("Application has already been issued")
	}

	now := s.now()
	notes := strings.TrimSpace(change.Notes)
	if notes == "" {
		notes = fmt.Sprintf("Status changed to %s", change.Status)
	}

	previous := app.ApplicationStatus
	entry := app.RecordStatus(change.Status, caller.ID, notes, now)

	if change.Status == models.StatusRejected && strings.TrimSpace(change.Notes) != "" {
		app.RejectionReason = notes
	}
	if change.Status == models.StatusIssued {
		if err := s.issue(app, now); err != nil {
			return nil, err
		}
	}

	if err := s.apps.AppendStatus(ctx, app, entry); err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(change.Status))
	s.audit.Record(ctx, audit.Event{
		Type:        audit.EventTypeApplicationStatus,
		Description: notes,
		ActorID:     caller.ID,
		TargetID:    app.ID,
		Success:     true,
		Metadata: map[string]interface{}{
			"from": previous,
			"to":   change.Status,
		},
	})
	s.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"from":           previous,
		"to":             change.Status,
		"changed_by":     caller.ID,
	}).Info("application status changed")

	return app, nil
}

// issue stamps issue and expiry dates and assigns a document number
func (s *Service) issue(app *models.Application, now time.Time) error {
	issueDate := now
	years := defaultValidityYears
	if app.ApplicationType == models.ApplicationTypeNationalID {
		years = nationalIDValidityYears
	}
	expiryDate := issueDate.AddDate(years, 0, 0)

	app.IssueDate = &issueDate
	app.ExpiryDate = &expiryDate

	if app.DocumentNumber == "" {
		number, err := s.numberer(documentNumberPrefixes[app.ApplicationType])
		if err != nil {
			return apperror.Internal("Failed to generate document number", err)
		}
		app.DocumentNumber = number
	}
	return nil
}

// Delete removes an application. Applicants may only delete drafts.
func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !caller.CanAccess(app.ApplicantID, authz.CapApplicationsWriteAny) {
		return apperror.Unauthorized("Not authorized to delete this application")
	}
	if !caller.Can(authz.CapApplicationsWriteAny) && app.ApplicationStatus != models.StatusDraft {
		return apperror.InvalidTransition("Cannot delete application once submitted. Please contact support.")
	}

	if err := s.apps.Delete(ctx, id); err != nil {
		return err
	}

	if !caller.Owns(app.ApplicantID) {
		s.audit.Record(ctx, audit.Event{
			Type:     audit.EventTypeApplicationDelete,
			ActorID:  caller.ID,
			TargetID: app.ID,
			Success:  true,
			Metadata: map[string]interface{}{"status": app.ApplicationStatus},
		})
	}
	s.log.WithField("application_id", id).Info("application deleted")

	return nil
}

func normalizePersonalInfo(info models.PersonalInfo, now time.Time) (models.PersonalInfo, error) {
	info.FirstName = strings.TrimSpace(info.FirstName)
	info.LastName = strings.TrimSpace(info.LastName)
	info.PlaceOfBirth = strings.TrimSpace(info.PlaceOfBirth)

	switch {
	case info.FirstName == "":
		return info, apperror.Validation("Please provide a first name")
	case info.LastName == "":
		return info, apperror.Validation("Please provide a last name")
	case info.DateOfBirth.IsZero():
		return info, apperror.Validation("Please provide a date of birth")
	case info.DateOfBirth.After(now):
		return info, apperror.Validation("Date of birth cannot be in the future")
	case info.PlaceOfBirth == "":
		return info, apperror.Validation("Please provide a place of birth")
	case !info.Gender.Valid():
		return info, apperror.Validation("Please provide a valid gender")
	case !info.MaritalStatus.Valid():
		return info, apperror.Validation("Please provide a valid marital status")
	}

	if strings.TrimSpace(info.Nationality) == "" {
		info.Nationality = models.DefaultNationality
	}
	return info, nil
}

func validateContactInfo(info models.ContactInfo) error {
	if !models.ValidDistrict(info.Address.District) {
		return apperror.Validationf("Invalid district: %s", info.Address.District)
	}
	return nil
}
