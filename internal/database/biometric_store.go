package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civilregistry/backend/internal/models"
)

const biometricEntity = "Biometric record"

// BiometricStore is the postgres storage.BiometricStore
type BiometricStore struct {
	db *gorm.DB
}

// NewBiometricStore creates a BiometricStore
func NewBiometricStore(db *gorm.DB) *BiometricStore {
	return &BiometricStore{db: db}
}

func (s *BiometricStore) Create(ctx context.Context, biometric *models.Biometric) error {
	return translate(s.db.WithContext(ctx).Create(biometric).Error, biometricEntity)
}

func (s *BiometricStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Biometric, error) {
	var biometric models.Biometric
	if err := s.db.WithContext(ctx).First(&biometric, "id = ?", id).Error; err != nil {
		return nil, translate(err, biometricEntity)
	}
	return &biometric, nil
}

func (s *BiometricStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Biometric, error) {
	records := make([]models.Biometric, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, translate(err, biometricEntity)
	}
	return records, nil
}

func (s *BiometricStore) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(s.db.WithContext(ctx).Delete(&models.Biometric{}, "id = ?", id), biometricEntity)
}
