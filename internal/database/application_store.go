package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/storage"
)

const applicationEntity = "Application"

// ApplicationStore is the postgres storage.ApplicationStore
type ApplicationStore struct {
	db *gorm.DB
}

// NewApplicationStore creates an ApplicationStore
func NewApplicationStore(db *gorm.DB) *ApplicationStore {
	return &ApplicationStore{db: db}
}

func orderedHistory(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

func (s *ApplicationStore) Create(ctx context.Context, app *models.Application) error {
	return translate(s.db.WithContext(ctx).Omit("Applicant").Create(app).Error, applicationEntity)
}

func (s *ApplicationStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := s.db.WithContext(ctx).
		Preload("StatusHistory", orderedHistory).
		Preload("Applicant").
		First(&app, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, applicationEntity)
	}
	return &app, nil
}

func (s *ApplicationStore) List(ctx context.Context, filter storage.ApplicationFilter) ([]models.Application, error) {
	query := s.db.WithContext(ctx).Model(&models.Application{})

	if filter.Status != "" {
		query = query.Where("application_status = ?", filter.Status)
	}
	if filter.ApplicantID != nil {
		query = query.Where("applicant_id = ?", *filter.ApplicantID)
	}
	if filter.Type != "" {
		query = query.Where("application_type = ?", filter.Type)
	}

	apps := make([]models.Application, 0)
	err := query.
		Preload("StatusHistory", orderedHistory).
		Preload("Applicant").
		Order("created_at DESC").
		Find(&apps).Error
	if err != nil {
		return nil, translate(err, applicationEntity)
	}
	return apps, nil
}

// workflowOmit leaves associations and the mirror columns out of workflow
// saves. The mirror columns are written only by SetDocuments and
// SetBiometricsCaptured.
var workflowOmit = []string{clause.Associations, "documents", "biometrics_captured"}

func saveWorkflow(tx *gorm.DB, app *models.Application) *gorm.DB {
	return tx.Select("*").Omit(workflowOmit...).Save(app)
}

func (s *ApplicationStore) Update(ctx context.Context, app *models.Application) error {
	return affected(saveWorkflow(s.db.WithContext(ctx), app), applicationEntity)
}

func (s *ApplicationStore) AppendStatus(ctx context.Context, app *models.Application, entry models.StatusHistoryEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := saveWorkflow(tx, app)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		entry.ApplicationID = app.ID
		return tx.Create(&entry).Error
	})
	return translate(err, applicationEntity)
}

func (s *ApplicationStore) SetDocuments(ctx context.Context, id uuid.UUID, refs []models.DocumentRef) error {
	if refs == nil {
		refs = []models.DocumentRef{}
	}
	result := s.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		Update("documents", datatypes.NewJSONSlice(refs))
	return affected(result, applicationEntity)
}

func (s *ApplicationStore) SetBiometricsCaptured(ctx context.Context, id uuid.UUID, captured bool) error {
	result := s.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		Update("biometrics_captured", captured)
	return affected(result, applicationEntity)
}

func (s *ApplicationStore) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(s.db.WithContext(ctx).Delete(&models.Application{}, "id = ?", id), applicationEntity)
}

func (s *ApplicationStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Application{}).Pluck("id", &ids).Error; err != nil {
		return nil, translate(err, applicationEntity)
	}
	return ids, nil
}
