package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/models"
)

// BiometricStore is an in-memory storage.BiometricStore
type BiometricStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*models.Biometric
}

// NewBiometricStore creates an empty BiometricStore
func NewBiometricStore() *BiometricStore {
	return &BiometricStore{records: make(map[uuid.UUID]*models.Biometric)}
}

func (s *BiometricStore) Create(_ context.Context, biometric *models.Biometric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&biometric.Base, time.Now())
	s.records[biometric.ID] = cloneBiometric(biometric)
	return nil
}

func (s *BiometricStore) FindByID(_ context.Context, id uuid.UUID) (*models.Biometric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.records[id]
	if !ok {
		return nil, apperror.NotFound("Biometric record not found")
	}
	return cloneBiometric(b), nil
}

func (s *BiometricStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Biometric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Biometric, 0)
	for _, b := range s.records {
		if b.UserID == userID {
			result = append(result, *cloneBiometric(b))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *BiometricStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return apperror.NotFound("Biometric record not found")
	}
	delete(s.records, id)
	return nil
}
