// Package storage defines the persistence contracts used by the services.
// Postgres implementations live in internal/database, in-memory ones in
// internal/storage/memory.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/civilregistry/backend/internal/models"
)

// ApplicationFilter narrows an application listing. Zero values match everything.
type ApplicationFilter struct {
	Status      models.ApplicationStatus
	ApplicantID *uuid.UUID
	Type        models.ApplicationType
}

// Matches reports whether app passes the filter
func (f ApplicationFilter) Matches(app *models.Application) bool {
	if f.Status != "" && app.ApplicationStatus != f.Status {
		return false
	}
	if f.ApplicantID != nil && app.ApplicantID != *f.ApplicantID {
		return false
	}
	if f.Type != "" && app.ApplicationType != f.Type {
		return false
	}
	return true
}

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// ApplicationStore persists applications together with their status history
type ApplicationStore interface {
	// Create inserts the application and every history entry it carries
	Create(ctx context.Context, app *models.Application) error
	// FindByID loads the application with its history ordered by sequence
	FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	// List returns matching applications, newest first
	List(ctx context.Context, filter ApplicationFilter) ([]models.Application, error)
	// Update saves the application's own columns, leaving history untouched
	Update(ctx context.Context, app *models.Application) error
	// AppendStatus saves the application and inserts entry in one transaction
	AppendStatus(ctx context.Context, app *models.Application, entry models.StatusHistoryEntry) error
	// SetDocuments replaces only the documents mirror column
	SetDocuments(ctx context.Context, id uuid.UUID, refs []models.DocumentRef) error
	// SetBiometricsCaptured flips the biometrics flag
	SetBiometricsCaptured(ctx context.Context, id uuid.UUID, captured bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DocumentStore persists uploaded document metadata
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	// ListByApplication returns documents ordered by upload date. A non-nil
	// userID restricts the result to that uploader.
	ListByApplication(ctx context.Context, applicationID uuid.UUID, userID *uuid.UUID) ([]models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentStore persists payments
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	TotalCompletedByUser(ctx context.Context, userID uuid.UUID) (float64, error)
	ListStalePending(ctx context.Context, before time.Time) ([]models.Payment, error)
}

// BiometricStore persists biometric captures
type BiometricStore interface {
	Create(ctx context.Context, biometric *models.Biometric) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Biometric, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Biometric, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
