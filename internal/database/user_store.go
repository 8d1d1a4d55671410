package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/models"
)

// UserStore is the postgres storage.UserStore
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	err := translate(s.db.WithContext(ctx).Create(user).Error, "User")
	if apperror.Is(err, apperror.KindConflict) {
		return apperror.Conflict("User already exists")
	}
	return err
}

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "User")
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, translate(err, "User")
	}
	return &user, nil
}

func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Save(user).Error, "User")
}
