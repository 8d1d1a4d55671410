package biometric

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/security/audit"
	"github.com/civilregistry/backend/internal/storage"
)

// Service stores biometric captures and flags the applications they belong to
type Service struct {
	biometrics storage.BiometricStore
	apps       storage.ApplicationStore
	audit      audit.Recorder
	log        logrus.FieldLogger
}

// NewService creates a biometric Service
func NewService(biometrics storage.BiometricStore, apps storage.ApplicationStore, recorder audit.Recorder, log logrus.FieldLogger) *Service {
	return &Service{
		biometrics: biometrics,
		apps:       apps,
		audit:      recorder,
		log:        log,
	}
}

// AddInput is the body of a biometric capture request. A nil UserID means
// the caller.
type AddInput struct {
	UserID        *uuid.UUID  `json:"userId"`
	ApplicationID *uuid.UUID  `json:"applicationId"`
	BiometricData models.JSON `json:"biometricData"`
}

// Add stores a capture for a user
func (s *Service) Add(ctx context.Context, caller authz.Caller, input AddInput) (*models.Biometric, error) {
	if len(input.BiometricData) == 0 {
		return nil, apperror.Validation("Please provide biometric data")
	}

	subject := caller.ID
	if input.UserID != nil && *input.UserID != uuid.Nil {
		subject = *input.UserID
	}
	if !caller.CanAccess(subject, authz.CapBiometricsWriteAny) {
		return nil, apperror.Unauthorized("Not authorized to store biometric data for this user")
	}

	var app *models.Application
	if input.ApplicationID != nil && *input.ApplicationID != uuid.Nil {
		found, err := s.apps.FindByID(ctx, *input.ApplicationID)
		if err != nil {
			return nil, err
		}
		if found.ApplicantID != subject {
			return nil, apperror.NotFound("Application not found")
		}
		app = found
	}

	record := &models.Biometric{
		UserID:        subject,
		CapturedBy:    caller.ID,
		BiometricData: input.BiometricData.Clone(),
	}
	if app != nil {
		id := app.ID
		record.ApplicationID = &id
	}
	if err := s.biometrics.Create(ctx, record); err != nil {
		return nil, err
	}

	if app != nil {
		if err := s.apps.SetBiometricsCaptured(ctx, app.ID, true); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"biometric_id": record.ID,
		"user_id":      subject,
		"captured_by":  caller.ID,
	}).Info("biometric data saved")

	return record, nil
}

// ListForUser returns the captures of userID, newest first
func (s *Service) ListForUser(ctx context.Context, caller authz.Caller, userID uuid.UUID) ([]models.Biometric, error) {
	if !caller.CanAccess(userID, authz.CapBiometricsReadAny) {
		return nil, apperror.Unauthorized("Not authorized to view biometric data for this user")
	}
	return s.biometrics.ListByUser(ctx, userID)
}

// Delete removes a capture owned by the caller, or any capture for admins
func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	record, err := s.biometrics.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !caller.CanAccess(record.UserID, authz.CapBiometricsWriteAny) {
		return apperror.Unauthorized("Not authorized to delete this biometric record")
	}

	if err := s.biometrics.Delete(ctx, id); err != nil {
		return err
	}

	if !caller.Owns(record.UserID) {
		s.audit.Record(ctx, audit.Event{
			Type:     audit.EventTypeBiometricDelete,
			ActorID:  caller.ID,
			TargetID: record.ID,
			Success:  true,
			Metadata: map[string]interface{}{"user_id": record.UserID},
		})
	}
	return nil
}
