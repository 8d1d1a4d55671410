package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civilregistry/backend/internal/models"
)

const documentEntity = "Document"

// DocumentStore is the postgres storage.DocumentStore
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore creates a DocumentStore
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Create(ctx context.Context, doc *models.Document) error {
	return translate(s.db.WithContext(ctx).Create(doc).Error, documentEntity)
}

func (s *DocumentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, translate(err, documentEntity)
	}
	return &doc, nil
}

func (s *DocumentStore) ListByApplication(ctx context.Context, applicationID uuid.UUID, userID *uuid.UUID) ([]models.Document, error) {
	query := s.db.WithContext(ctx).Where("application_id = ?", applicationID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	docs := make([]models.Document, 0)
	if err := query.Order("upload_date ASC").Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, translate(err, documentEntity)
	}
	return docs, nil
}

func (s *DocumentStore) Update(ctx context.Context, doc *models.Document) error {
	return translate(s.db.WithContext(ctx).Save(doc).Error, documentEntity)
}

func (s *DocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(s.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id), documentEntity)
}
