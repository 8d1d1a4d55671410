package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/civilregistry/backend/internal/models"
)

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneApplication(app *models.Application) *models.Application {
	out := *app
	out.Applicant = nil
	out.StatusHistory = append([]models.StatusHistoryEntry(nil), app.StatusHistory...)
	out.SetDocumentRefs(app.DocumentRefs())
	out.AppointmentDate = cloneTime(app.AppointmentDate)
	out.IssueDate = cloneTime(app.IssueDate)
	out.ExpiryDate = cloneTime(app.ExpiryDate)
	return &out
}

func cloneDocument(doc *models.Document) *models.Document {
	out := *doc
	out.VerificationDate = cloneTime(doc.VerificationDate)
	out.VerifiedBy = cloneUUID(doc.VerifiedBy)
	return &out
}

func clonePayment(p *models.Payment) *models.Payment {
	out := *p
	out.TransactionID = cloneString(p.TransactionID)
	out.ReceiptNumber = cloneString(p.ReceiptNumber)
	out.ProcessingDate = cloneTime(p.ProcessingDate)
	out.Metadata = p.Metadata.Clone()
	return &out
}

func cloneBiometric(b *models.Biometric) *models.Biometric {
	out := *b
	out.ApplicationID = cloneUUID(b.ApplicationID)
	out.BiometricData = b.BiometricData.Clone()
	return &out
}

func cloneUser(u *models.User) *models.User {
	out := *u
	out.LastLoginAt = cloneTime(u.LastLoginAt)
	return &out
}

func stamp(base *models.Base, now time.Time) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}
