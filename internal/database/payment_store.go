package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civilregistry/backend/internal/models"
)

const paymentEntity = "Payment"

// PaymentStore is the postgres storage.PaymentStore
type PaymentStore struct {
	db *gorm.DB
}

// NewPaymentStore creates a PaymentStore
func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	return translate(s.db.WithContext(ctx).Create(payment).Error, paymentEntity)
}

func (s *PaymentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, translate(err, paymentEntity)
	}
	return &payment, nil
}

func (s *PaymentStore) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, translate(err, paymentEntity)
	}
	return &payment, nil
}

func (s *PaymentStore) find(ctx context.Context, query interface{}, args ...interface{}) ([]models.Payment, error) {
	payments := make([]models.Payment, 0)
	err := s.db.WithContext(ctx).
		Where(query, args...).
		Order("payment_date DESC").
		Find(&payments).Error
	if err != nil {
		return nil, translate(err, paymentEntity)
	}
	return payments, nil
}

func (s *PaymentStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	return s.find(ctx, "user_id = ?", userID)
}

func (s *PaymentStore) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Payment, error) {
	return s.find(ctx, "application_id = ?", applicationID)
}

func (s *PaymentStore) Update(ctx context.Context, payment *models.Payment) error {
	return translate(s.db.WithContext(ctx).Save(payment).Error, paymentEntity)
}

func (s *PaymentStore) TotalCompletedByUser(ctx context.Context, userID uuid.UUID) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("user_id = ? AND status = ?", userID, models.PaymentStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, translate(err, paymentEntity)
	}
	return total, nil
}

func (s *PaymentStore) ListStalePending(ctx context.Context, before time.Time) ([]models.Payment, error) {
	return s.find(ctx, "status = ? AND payment_date < ?", models.PaymentStatusPending, before)
}
