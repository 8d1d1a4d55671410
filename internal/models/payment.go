package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusProcessing    PaymentStatus = "processing"
	PaymentStatusCompleted     PaymentStatus = "completed"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusPartialRefund PaymentStatus = "partial_refund"
)

// PaymentMethod is how the applicant pays
type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodMpesa        PaymentMethod = "Mpesa"
	PaymentMethodStripe       PaymentMethod = "stripe"
	PaymentMethodEcocash      PaymentMethod = "Ecocash"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodBankTransfer,
		PaymentMethodMpesa, PaymentMethodStripe, PaymentMethodEcocash:
		return true
	}
	return false
}

// PaymentType is what the payment is for
type PaymentType string

const (
	PaymentTypeApplicationFee     PaymentType = "application_fee"
	PaymentTypeDocumentProcessing PaymentType = "document_processing"
	PaymentTypeExpeditedService   PaymentType = "expedited_service"
	PaymentTypeConsultation       PaymentType = "consultation"
	PaymentTypeOther              PaymentType = "other"
)

// Valid reports whether t is a known payment type
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeApplicationFee, PaymentTypeDocumentProcessing,
		PaymentTypeExpeditedService, PaymentTypeConsultation, PaymentTypeOther:
		return true
	}
	return false
}

// Payment represents a payment transaction for an application
type Payment struct {
	Base
	UserID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"userId"`
	ApplicationID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"applicationId"`
	Amount         float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency       string        `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentMethod  PaymentMethod `gorm:"type:varchar(30);not null" json:"paymentMethod"`
	PaymentType    PaymentType   `gorm:"type:varchar(30);not null" json:"paymentType"`
	Status         PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TransactionID  *string       `gorm:"type:varchar(100);uniqueIndex" json:"transactionId,omitempty"`
	ReceiptNumber  *string       `gorm:"type:varchar(50);uniqueIndex" json:"receiptNumber,omitempty"`
	PaymentDate    time.Time     `gorm:"not null;index" json:"paymentDate"`
	ProcessingDate *time.Time    `json:"processingDate,omitempty"`
	Description    string        `gorm:"type:text" json:"description,omitempty"`
	FailureReason  string        `gorm:"type:text" json:"failureReason,omitempty"`
	Metadata       JSON          `gorm:"type:jsonb" json:"metadata,omitempty"`
}
