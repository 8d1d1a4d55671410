package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType is the kind of supporting document uploaded
type DocumentType string

const (
	DocumentTypePassport       DocumentType = "passport"
	DocumentTypeIDCard         DocumentType = "id_card"
	DocumentTypeDrivingLicense DocumentType = "driving_license"
	DocumentTypeUtilityBill    DocumentType = "utility_bill"
	DocumentTypeBankStatement  DocumentType = "bank_statement"
	DocumentTypeOther          DocumentType = "other"
)

// Valid reports whether t is a known document type
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypePassport, DocumentTypeIDCard, DocumentTypeDrivingLicense,
		DocumentTypeUtilityBill, DocumentTypeBankStatement, DocumentTypeOther:
		return true
	}
	return false
}

// DocumentStatus is the verification state of a document
type DocumentStatus string

const (
	DocumentStatusPendingVerification DocumentStatus = "pending_verification"
	DocumentStatusVerified            DocumentStatus = "verified"
	DocumentStatusRejected            DocumentStatus = "rejected"
)

// Document is uploaded file metadata linked to an application
type Document struct {
	Base
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_documents_user_application" json:"userId"`
	ApplicationID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_documents_user_application" json:"applicationId"`
	DocumentType     DocumentType   `gorm:"type:varchar(40);not null;index" json:"documentType"`
	FileName         string         `gorm:"type:varchar(255);not null" json:"fileName"`
	OriginalName     string         `gorm:"type:varchar(255);not null" json:"originalName"`
	MimeType         string         `gorm:"type:varchar(100);not null" json:"mimeType"`
	Size             int64          `gorm:"not null" json:"size"`
	Path             string         `gorm:"type:text;not null" json:"path"`
	UploadDate       time.Time      `gorm:"not null" json:"uploadDate"`
	VerificationDate *time.Time     `json:"verificationDate,omitempty"`
	VerifiedBy       *uuid.UUID     `gorm:"type:uuid" json:"verifiedBy,omitempty"`
	Status           DocumentStatus `gorm:"type:varchar(30);not null;default:'pending_verification';index" json:"status"`
	RejectionReason  string         `gorm:"type:text" json:"rejectionReason,omitempty"`
}

// Ref returns the mirror entry for this document
func (d *Document) Ref() DocumentRef {
	return DocumentRef{
		DocumentID:   d.ID,
		DocumentType: d.DocumentType,
		Status:       d.Status,
	}
}
