package payment

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/metrics"
	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/storage"
	"github.com/civilregistry/backend/internal/utils"
)

// Webhook event types acted on
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// supportedCurrencies lists the currencies accepted for fees
var supportedCurrencies = map[string]bool{
	"ZAR": true,
	"LSL": true,
}

// IntentRequest asks a provider to start collecting a payment
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Intent is a provider-side payment awaiting confirmation by the client
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Provider creates payment intents with an external processor
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}

// PaymentService handles application fee payments
type PaymentService struct {
	payments      storage.PaymentStore
	apps          storage.ApplicationStore
	provider      Provider
	webhookSecret string
	metrics       *metrics.Metrics
	log           logrus.FieldLogger
	now           func() time.Time
	receipts      func(time.Time) (string, error)
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	payments storage.PaymentStore,
	apps storage.ApplicationStore,
	provider Provider,
	webhookSecret string,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *PaymentService {
	return &PaymentService{
		payments:      payments,
		apps:          apps,
		provider:      provider,
		webhookSecret: webhookSecret,
		metrics:       m,
		log:           log,
		now:           time.Now,
		receipts:      utils.GenerateReceiptNumber,
	}
}

// CreateInput is the body of a payment creation request
type CreateInput struct {
	ApplicationID uuid.UUID            `json:"applicationId"`
	Amount        float64              `json:"amount"`
	Currency      string               `json:"currency"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	PaymentType   models.PaymentType   `json:"paymentType"`
	Description   string               `json:"description"`
}

// CreateResult carries the secret the client needs to confirm the intent
type CreateResult struct {
	ClientSecret string          `json:"clientSecret"`
	Payment      *models.Payment `json:"payment"`
}

// Create records a pending payment and opens a provider intent for it
func (s *PaymentService) Create(ctx context.Context, caller authz.Caller, input CreateInput) (*CreateResult, error) {
	if !caller.Can(authz.CapPaymentsCreate) {
		return nil, apperror.Unauthorized("Not authorized to create payments")
	}
	if input.Amount <= 0 || math.IsNaN(input.Amount) || math.IsInf(input.Amount, 0) {
		return nil, apperror.Validation("Amount must be greater than zero.")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if !supportedCurrencies[currency] {
		return nil, apperror.Validation("Invalid currency. Must be ZAR or LSL.")
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = models.PaymentMethodStripe
	}
	if !input.PaymentMethod.Valid() {
		return nil, apperror.Validation("Invalid payment method")
	}
	if input.PaymentType == "" {
		input.PaymentType = models.PaymentTypeApplicationFee
	}
	if !input.PaymentType.Valid() {
		return nil, apperror.Validation("Invalid payment type")
	}

	app, err := s.apps.FindByID(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(app.ApplicantID) {
		return nil, apperror.NotFound("Application not found")
	}

	now := s.now()
	receipt, err := s.receipts(now)
	if err != nil {
		return nil, apperror.Internal("Failed to generate receipt number", err)
	}

	payment := &models.Payment{
		UserID:        caller.ID,
		ApplicationID: app.ID,
		Amount:        input.Amount,
		Currency:      currency,
		PaymentMethod: input.PaymentMethod,
		PaymentType:   input.PaymentType,
		Status:        models.PaymentStatusPending,
		ReceiptNumber: &receipt,
		PaymentDate:   now,
		Description:   strings.TrimSpace(input.Description),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	intent, err := s.provider.CreateIntent(ctx, IntentRequest{
		AmountMinor: int64(math.Round(input.Amount * 100)),
		Currency:    strings.ToLower(currency),
		Description: payment.Description,
		Metadata: map[string]string{
			"paymentId":     payment.ID.String(),
			"applicationId": app.ID.String(),
			"receiptNumber": receipt,
		},
	})
	if err != nil {
		payment.Status = models.PaymentStatusFailed
		payment.FailureReason = err.Error()
		if updateErr := s.payments.Update(ctx, payment); updateErr != nil {
			s.log.WithError(updateErr).WithField("payment_id", payment.ID).Error("failed to mark payment failed")
		}
		return nil, apperror.Internal("Failed to create payment intent", err)
	}

	payment.TransactionID = &intent.ID
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.metrics.ObservePayment(currency)
	s.log.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"application_id": app.ID,
		"transaction_id": intent.ID,
	}).Info("payment intent created")

	return &CreateResult{ClientSecret: intent.ClientSecret, Payment: payment}, nil
}

// webhookEvent is the subset of a provider event read here
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// HandleWebhook applies a signed provider event to the matching payment.
// Unknown event types and transactions are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !utils.VerifyHMAC(payload, signature, s.webhookSecret) {
		return apperror.Unauthorized("Invalid webhook signature")
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return apperror.Validation("Invalid webhook payload")
	}

	entry := s.log.WithFields(logrus.Fields{
		"event_id":       event.ID,
		"event_type":     event.Type,
		"transaction_id": event.Data.Object.ID,
	})

	switch event.Type {
	case EventIntentSucceeded:
		return s.settle(ctx, entry, event.Data.Object.ID, models.PaymentStatusCompleted, "")
	case EventIntentFailed:
		reason := "Payment failed"
		if e := event.Data.Object.LastPaymentError; e != nil && e.Message != "" {
			reason = e.Message
		}
		return s.settle(ctx, entry, event.Data.Object.ID, models.PaymentStatusFailed, reason)
	default:
		entry.Debug("ignoring webhook event")
		return nil
	}
}

// MarkCompleted settles the payment carrying transactionID
func (s *PaymentService) MarkCompleted(ctx context.Context, transactionID string) error {
	return s.settle(ctx, s.log.WithField("transaction_id", transactionID), transactionID, models.PaymentStatusCompleted, "")
}

func (s *PaymentService) settle(ctx context.Context, entry logrus.FieldLogger, transactionID string, status models.PaymentStatus, reason string) error {
	payment, err := s.payments.FindByTransactionID(ctx, transactionID)
	if apperror.Is(err, apperror.KindNotFound) {
		entry.Warn("webhook for unknown transaction")
		return nil
	}
	if err != nil {
		return err
	}
	if payment.Status == status || payment.Status == models.PaymentStatusCompleted {
		return nil
	}

	now := s.now()
	payment.Status = status
	payment.ProcessingDate = &now
	payment.FailureReason = reason
	if err := s.payments.Update(ctx, payment); err != nil {
		return err
	}

	entry.WithField("status", status).Info("payment settled")
	return nil
}

// Get returns a payment visible to the caller
func (s *PaymentService) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(payment.UserID, authz.CapPaymentsReadAny) {
		return nil, apperror.NotFound("Payment not found")
	}
	return payment, nil
}

// ListMine returns the caller's payments, newest first
func (s *PaymentService) ListMine(ctx context.Context, caller authz.Caller) ([]models.Payment, error) {
	return s.payments.ListByUser(ctx, caller.ID)
}

// ListByApplication returns the payments for an application the caller can see
func (s *PaymentService) ListByApplication(ctx context.Context, caller authz.Caller, applicationID uuid.UUID) ([]models.Payment, error) {
	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(app.ApplicantID, authz.CapPaymentsReadAny) {
		return nil, apperror.NotFound("Application not found")
	}
	return s.payments.ListByApplication(ctx, applicationID)
}

// TotalPaid sums the completed payments of userID
func (s *PaymentService) TotalPaid(ctx context.Context, userID uuid.UUID) (float64, error) {
	return s.payments.TotalCompletedByUser(ctx, userID)
}

// ExpireStale marks pending payments older than ttl as failed and returns
// how many were expired
func (s *PaymentService) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	now := s.now()
	stale, err := s.payments.ListStalePending(ctx, now.Add(-ttl))
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		payment := &stale[i]
		payment.Status = models.PaymentStatusFailed
		payment.ProcessingDate = &now
		payment.FailureReason = "Payment was not confirmed in time"
		if err := s.payments.Update(ctx, payment); err != nil {
			s.log.WithError(err).WithField("payment_id", payment.ID).Error("failed to expire payment")
			continue
		}
		expired++
	}

	if expired > 0 {
		s.log.WithField("count", expired).Info("expired stale payments")
	}
	return expired, nil
}
