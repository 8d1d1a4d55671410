package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/civilregistry/backend/internal/apperror"
)

// translate maps gorm errors onto the application error taxonomy
func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound(entity + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict(entity + " already exists")
	default:
		return apperror.Internal("Database error", err)
	}
}

// affected turns a zero-row write into NotFound
func affected(result *gorm.DB, entity string) error {
	if result.Error != nil {
		return translate(result.Error, entity)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound(entity + " not found")
	}
	return nil
}
