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

// DocumentStore is an in-memory storage.DocumentStore
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*models.Document
}

// NewDocumentStore creates an empty DocumentStore
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[uuid.UUID]*models.Document)}
}

func (s *DocumentStore) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&doc.Base, time.Now())
	s.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *DocumentStore) FindByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, apperror.NotFound("Document not found")
	}
	return cloneDocument(doc), nil
}

func (s *DocumentStore) ListByApplication(_ context.Context, applicationID uuid.UUID, userID *uuid.UUID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Document, 0)
	for _, doc := range s.docs {
		if doc.ApplicationID != applicationID {
			continue
		}
		if userID != nil && doc.UserID != *userID {
			continue
		}
		result = append(result, *cloneDocument(doc))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].UploadDate.Equal(result[j].UploadDate) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].UploadDate.Before(result[j].UploadDate)
	})
	return result, nil
}

func (s *DocumentStore) Update(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; !ok {
		return apperror.NotFound("Document not found")
	}
	doc.UpdatedAt = time.Now()
	s.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *DocumentStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return apperror.NotFound("Document not found")
	}
	delete(s.docs, id)
	return nil
}
