package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/storage"
)

// ApplicationStore is an in-memory storage.ApplicationStore
type ApplicationStore struct {
	mu   sync.RWMutex
	apps map[uuid.UUID]*models.Application

	// FailSetDocuments makes SetDocuments return an internal error, for
	// exercising mirror repair paths in tests.
	FailSetDocuments bool
}

// NewApplicationStore creates an empty ApplicationStore
func NewApplicationStore() *ApplicationStore {
	return &ApplicationStore{apps: make(map[uuid.UUID]*models.Application)}
}

func (s *ApplicationStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// creation order must survive equal clock readings
	now := time.Now()
	for _, existing := range s.apps {
		if !existing.CreatedAt.Before(now) {
			now = existing.CreatedAt.Add(time.Microsecond)
		}
	}
	stamp(&app.Base, now)
	for i := range app.StatusHistory {
		app.StatusHistory[i].ApplicationID = app.ID
	}
	s.apps[app.ID] = cloneApplication(app)
	return nil
}

func (s *ApplicationStore) FindByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[id]
	if !ok {
		return nil, apperror.NotFound("Application not found")
	}
	return cloneApplication(app), nil
}

func (s *ApplicationStore) List(_ context.Context, filter storage.ApplicationFilter) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Application, 0)
	for _, app := range s.apps {
		if filter.Matches(app) {
			result = append(result, *cloneApplication(app))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *ApplicationStore) Update(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.apps[app.ID]
	if !ok {
		return apperror.NotFound("Application not found")
	}
	updated := cloneApplication(app)
	keepMirror(updated, existing)
	updated.StatusHistory = existing.StatusHistory
	updated.UpdatedAt = time.Now()
	app.UpdatedAt = updated.UpdatedAt
	s.apps[app.ID] = updated
	return nil
}

func (s *ApplicationStore) AppendStatus(_ context.Context, app *models.Application, entry models.StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.apps[app.ID]
	if !ok {
		return apperror.NotFound("Application not found")
	}
	updated := cloneApplication(app)
	keepMirror(updated, existing)
	updated.StatusHistory = append(append([]models.StatusHistoryEntry(nil), existing.StatusHistory...), entry)
	updated.UpdatedAt = time.Now()
	app.UpdatedAt = updated.UpdatedAt
	s.apps[app.ID] = updated
	return nil
}

// keepMirror carries the stored mirror columns over a workflow save
func keepMirror(updated, existing *models.Application) {
	updated.SetDocumentRefs(existing.DocumentRefs())
	updated.BiometricsCaptured = existing.BiometricsCaptured
}

func (s *ApplicationStore) SetDocuments(_ context.Context, id uuid.UUID, refs []models.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSetDocuments {
		return apperror.Internal("Failed to update application documents", nil)
	}
	app, ok := s.apps[id]
	if !ok {
		return apperror.NotFound("Application not found")
	}
	app.SetDocumentRefs(append([]models.DocumentRef(nil), refs...))
	return nil
}

func (s *ApplicationStore) SetBiometricsCaptured(_ context.Context, id uuid.UUID, captured bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return apperror.NotFound("Application not found")
	}
	app.BiometricsCaptured = captured
	return nil
}

func (s *ApplicationStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[id]; !ok {
		return apperror.NotFound("Application not found")
	}
	delete(s.apps, id)
	return nil
}

func (s *ApplicationStore) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.apps))
	for id := range s.apps {
		ids = append(ids, id)
	}
	return ids, nil
}
