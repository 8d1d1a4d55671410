package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApplicationType is the kind of identity document applied for
type ApplicationType string

const (
	ApplicationTypeNationalID              ApplicationType = "national_id"
	ApplicationTypePassport                ApplicationType = "passport"
	ApplicationTypeEmergencyTravelDocument ApplicationType = "emergency_travel_document"
	ApplicationTypeRenewal                 ApplicationType = "renewal"
)

// Valid reports whether t is a known application type
func (t ApplicationType) Valid() bool {
	switch t {
	case ApplicationTypeNationalID, ApplicationTypePassport,
		ApplicationTypeEmergencyTravelDocument, ApplicationTypeRenewal:
		return true
	}
	return false
}

// ApplicationStatus is a state of the application workflow
type ApplicationStatus string

const (
	StatusDraft                  ApplicationStatus = "draft"
	StatusSubmitted              ApplicationStatus = "submitted"
	StatusUnderReview            ApplicationStatus = "under_review"
	StatusAdditionalInfoRequired ApplicationStatus = "additional_info_required"
	StatusApproved               ApplicationStatus = "approved"
	StatusRejected               ApplicationStatus = "rejected"
	StatusIssued                 ApplicationStatus = "issued"
)

// ApplicationStatuses lists every workflow state in order
var ApplicationStatuses = []ApplicationStatus{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusAdditionalInfoRequired,
	StatusApproved,
	StatusRejected,
	StatusIssued,
}

// Valid reports whether s is a known status
func (s ApplicationStatus) Valid() bool {
	for _, status := range ApplicationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Gender as recorded on the application
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is a known gender value
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// MaritalStatus as recorded on the application
type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "single"
	MaritalMarried  MaritalStatus = "married"
	MaritalDivorced MaritalStatus = "divorced"
	MaritalWidowed  MaritalStatus = "widowed"
)

// Valid reports whether m is empty or a known marital status
func (m MaritalStatus) Valid() bool {
	switch m {
	case "", MaritalSingle, MaritalMarried, MaritalDivorced, MaritalWidowed:
		return true
	}
	return false
}

// Districts of Lesotho accepted in contact addresses
var Districts = []string{
	"Maseru", "Berea", "Leribe", "Botha-Bothe", "Mokhotlong",
	"Qachas Nek", "Quthing", "Mohales Hoek", "Mafeteng", "Thaba-Tseka",
}

// ValidDistrict reports whether d is empty or a known district
func ValidDistrict(d string) bool {
	if d == "" {
		return true
	}
	for _, district := range Districts {
		if d == district {
			return true
		}
	}
	return false
}

// DefaultNationality applied when the applicant leaves it blank
const DefaultNationality = "Lesotho"

// PersonalInfo holds the applicant's descriptive fields
type PersonalInfo struct {
	FirstName     string        `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName      string        `gorm:"type:varchar(100);not null" json:"lastName"`
	OtherNames    string        `gorm:"type:varchar(255)" json:"otherNames,omitempty"`
	DateOfBirth   time.Time     `gorm:"not null" json:"dateOfBirth"`
	PlaceOfBirth  string        `gorm:"type:varchar(255);not null" json:"placeOfBirth"`
	Gender        Gender        `gorm:"type:varchar(10);not null" json:"gender"`
	Nationality   string        `gorm:"type:varchar(100);default:'Lesotho'" json:"nationality"`
	MaritalStatus MaritalStatus `gorm:"type:varchar(20)" json:"maritalStatus,omitempty"`
}

// Address is a postal address inside ContactInfo
type Address struct {
	Street     string `gorm:"type:varchar(255)" json:"street,omitempty"`
	City       string `gorm:"type:varchar(100)" json:"city,omitempty"`
	District   string `gorm:"type:varchar(50)" json:"district,omitempty"`
	PostalCode string `gorm:"type:varchar(20)" json:"postalCode,omitempty"`
}

// ContactInfo holds how the applicant can be reached
type ContactInfo struct {
	Address      Address `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	PhoneNumber  string  `gorm:"type:varchar(30)" json:"phoneNumber,omitempty"`
	EmailAddress string  `gorm:"type:varchar(255)" json:"emailAddress,omitempty"`
}

// StatusHistoryEntry is one append-only record of a workflow transition
type StatusHistoryEntry struct {
	ID            uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	ApplicationID uuid.UUID         `gorm:"type:uuid;not null;index" json:"-"`
	Sequence      int               `gorm:"not null" json:"sequence"`
	Status        ApplicationStatus `gorm:"type:varchar(40);not null" json:"status"`
	ChangedBy     uuid.UUID         `gorm:"type:uuid;not null" json:"changedBy"`
	Timestamp     time.Time         `gorm:"not null" json:"timestamp"`
	Notes         string            `gorm:"type:text" json:"notes"`
}

// TableName keeps the history table name singular
func (StatusHistoryEntry) TableName() string {
	return "application_status_history"
}

// BeforeCreate assigns the entry id
func (e *StatusHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// DocumentRef mirrors a Document's verification status inside its Application
type DocumentRef struct {
	DocumentID   uuid.UUID      `json:"documentId"`
	DocumentType DocumentType   `json:"documentType"`
	Status       DocumentStatus `json:"status"`
}

// Application is a request for an identity document
type Application struct {
	Base
	ApplicationType    ApplicationType                  `gorm:"type:varchar(40);not null;index" json:"applicationType"`
	ApplicantID        uuid.UUID                        `gorm:"type:uuid;not null;index" json:"applicantId"`
	Applicant          *User                            `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
	PersonalInfo       PersonalInfo                     `gorm:"embedded;embeddedPrefix:personal_" json:"personalInfo"`
	ContactInfo        ContactInfo                      `gorm:"embedded;embeddedPrefix:contact_" json:"contactInfo"`
	ApplicationStatus  ApplicationStatus                `gorm:"type:varchar(40);not null;default:'draft';index" json:"applicationStatus"`
	StatusHistory      []StatusHistoryEntry             `gorm:"foreignKey:ApplicationID" json:"statusHistory"`
	Documents          datatypes.JSONSlice[DocumentRef] `gorm:"type:jsonb" json:"documents"`
	AppointmentDate    *time.Time                       `json:"appointmentDate,omitempty"`
	OfficerNotes       string                           `gorm:"type:text" json:"officerNotes,omitempty"`
	BiometricsCaptured bool                             `gorm:"default:false" json:"biometricsCaptured"`
	RejectionReason    string                           `gorm:"type:text" json:"rejectionReason,omitempty"`
	DocumentNumber     string                           `gorm:"type:varchar(40)" json:"documentNumber,omitempty"`
	IssueDate          *time.Time                       `json:"issueDate,omitempty"`
	ExpiryDate         *time.Time                       `json:"expiryDate,omitempty"`
}

// IsOwnedBy reports whether userID is the applicant
func (a *Application) IsOwnedBy(userID uuid.UUID) bool {
	return a.ApplicantID == userID
}

// LastHistoryEntry returns the most recent status history entry
func (a *Application) LastHistoryEntry() (StatusHistoryEntry, bool) {
	if len(a.StatusHistory) == 0 {
		return StatusHistoryEntry{}, false
	}
	return a.StatusHistory[len(a.StatusHistory)-1], true
}

// RecordStatus sets the status and appends the matching history entry
func (a *Application) RecordStatus(status ApplicationStatus, changedBy uuid.UUID, notes string, at time.Time) StatusHistoryEntry {
	entry := StatusHistoryEntry{
		ID:            uuid.New(),
		ApplicationID: a.ID,
		Sequence:      len(a.StatusHistory) + 1,
		Status:        status,
		ChangedBy:     changedBy,
		Timestamp:     at,
		Notes:         notes,
	}
	a.ApplicationStatus = status
	a.StatusHistory = append(a.StatusHistory, entry)
	return entry
}

// DocumentRefs returns a copy of the documents mirror
func (a *Application) DocumentRefs() []DocumentRef {
	refs := make([]DocumentRef, len(a.Documents))
	copy(refs, a.Documents)
	return refs
}

// SetDocumentRefs replaces the documents mirror. A nil slice is stored as
// an empty one so the column never holds JSON null.
func (a *Application) SetDocumentRefs(refs []DocumentRef) {
	if refs == nil {
		refs = []DocumentRef{}
	}
	a.Documents = datatypes.NewJSONSlice(refs)
}

// AppendDocumentRef adds ref to the mirror
func (a *Application) AppendDocumentRef(ref DocumentRef) {
	a.SetDocumentRefs(append(a.DocumentRefs(), ref))
}

// SetDocumentRefStatus updates the mirror entry for documentID and reports
// whether one was found
func (a *Application) SetDocumentRefStatus(documentID uuid.UUID, status DocumentStatus) bool {
	refs := a.DocumentRefs()
	for i := range refs {
		if refs[i].DocumentID == documentID {
			refs[i].Status = status
			a.SetDocumentRefs(refs)
			return true
		}
	}
	return false
}

// RemoveDocumentRef removes exactly one mirror entry for documentID and
// reports whether one was found
func (a *Application) RemoveDocumentRef(documentID uuid.UUID) bool {
	refs := a.DocumentRefs()
	for i := range refs {
		if refs[i].DocumentID == documentID {
			a.SetDocumentRefs(append(refs[:i], refs[i+1:]...))
			return true
		}
	}
	return false
}
