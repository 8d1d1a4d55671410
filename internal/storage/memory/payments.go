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

// PaymentStore is an in-memory storage.PaymentStore
type PaymentStore struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*models.Payment
}

// NewPaymentStore creates an empty PaymentStore
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{payments: make(map[uuid.UUID]*models.Payment)}
}

func (s *PaymentStore) checkUnique(p *models.Payment) error {
	for id, existing := range s.payments {
		if id == p.ID {
			continue
		}
		if p.TransactionID != nil && existing.TransactionID != nil && *p.TransactionID == *existing.TransactionID {
			return apperror.Conflict("Transaction already recorded")
		}
		if p.ReceiptNumber != nil && existing.ReceiptNumber != nil && *p.ReceiptNumber == *existing.ReceiptNumber {
			return apperror.Conflict("Receipt number already in use")
		}
	}
	return nil
}

func (s *PaymentStore) Create(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(payment); err != nil {
		return err
	}
	stamp(&payment.Base, time.Now())
	s.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (s *PaymentStore) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, apperror.NotFound("Payment not found")
	}
	return clonePayment(p), nil
}

func (s *PaymentStore) FindByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.payments {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			return clonePayment(p), nil
		}
	}
	return nil, apperror.NotFound("Payment not found")
}

func (s *PaymentStore) list(match func(*models.Payment) bool) []models.Payment {
	result := make([]models.Payment, 0)
	for _, p := range s.payments {
		if match(p) {
			result = append(result, *clonePayment(p))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PaymentDate.After(result[j].PaymentDate)
	})
	return result
}

func (s *PaymentStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(func(p *models.Payment) bool { return p.UserID == userID }), nil
}

func (s *PaymentStore) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(func(p *models.Payment) bool { return p.ApplicationID == applicationID }), nil
}

func (s *PaymentStore) Update(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[payment.ID]; !ok {
		return apperror.NotFound("Payment not found")
	}
	if err := s.checkUnique(payment); err != nil {
		return err
	}
	payment.UpdatedAt = time.Now()
	s.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (s *PaymentStore) TotalCompletedByUser(_ context.Context, userID uuid.UUID) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, p := range s.payments {
		if p.UserID == userID && p.Status == models.PaymentStatusCompleted {
			total += p.Amount
		}
	}
	return total, nil
}

func (s *PaymentStore) ListStalePending(_ context.Context, before time.Time) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(func(p *models.Payment) bool {
		return p.Status == models.PaymentStatusPending && p.PaymentDate.Before(before)
	}), nil
}
