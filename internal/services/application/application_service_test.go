package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/logging"
	"github.com/civilregistry/backend/internal/metrics"
	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/security/audit"
	"github.com/civilregistry/backend/internal/storage"
	"github.com/civilregistry/backend/internal/storage/memory"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

var fixedNow = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	store    *memory.ApplicationStore
	recorder *mockRecorder
	owner    authz.Caller
	other    authz.Caller
	admin    authz.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewApplicationStore()
	recorder := &mockRecorder{}
	recorder.On("Record", mock.Anything, mock.Anything).Return().Maybe()

	svc := NewService(store, recorder, metrics.New(), logging.Discard())
	svc.now = func() time.Time { return fixedNow }
	svc.numberer = func(prefix string) (string, error) { return prefix + "12345678", nil }

	return &fixture{
		svc:      svc,
		store:    store,
		recorder: recorder,
		owner:    authz.Caller{ID: uuid.New(), Email: "owner@example.com", Role: authz.RoleApplicant},
		other:    authz.Caller{ID: uuid.New(), Email: "other@example.com", Role: authz.RoleApplicant},
		admin:    authz.Caller{ID: uuid.New(), Email: "admin@example.com", Role: authz.RoleAdmin},
	}
}

func validInput(appType models.ApplicationType) CreateInput {
	return CreateInput{
		ApplicationType: appType,
		PersonalInfo: models.PersonalInfo{
			FirstName:    "Palesa",
			LastName:     "Mokoena",
			DateOfBirth:  time.Date(1995, time.June, 12, 0, 0, 0, 0, time.UTC),
			PlaceOfBirth: "Maseru",
			Gender:       models.GenderFemale,
		},
		ContactInfo: models.ContactInfo{
			Address:     models.Address{City: "Maseru", District: "Maseru"},
			PhoneNumber: "+26622000000",
		},
	}
}

func assertHistoryConsistent(t *testing.T, app *models.Application) {
	t.Helper()
	require.NotEmpty(t, app.StatusHistory)
	last, ok := app.LastHistoryEntry()
	require.True(t, ok)
	assert.Equal(t, app.ApplicationStatus, last.Status)
	for i, entry := range app.StatusHistory {
		assert.Equal(t, i+1, entry.Sequence)
	}
}

func (f *fixture) create(t *testing.T, appType models.ApplicationType) *models.Application {
	t.Helper()
	app, err := f.svc.Create(context.Background(), f.owner, validInput(appType))
	require.NoError(t, err)
	return app
}

func TestCreate_SeedsDraftHistory(t *testing.T) {
	f := newFixture(t)
	app := f.create(t, models.ApplicationTypePassport)

	assert.Equal(t, models.StatusDraft, app.ApplicationStatus)
	assert.Equal(t, f.owner.ID, app.ApplicantID)
	assert.Equal(t, models.DefaultNationality, app.PersonalInfo.Nationality)
	require.Len(t, app.StatusHistory, 1)
	assert.Equal(t, f.owner.ID, app.StatusHistory[0].ChangedBy)
	assert.Equal(t, "Application created", app.StatusHistory[0].Notes)
	assert.Equal(t, fixedNow, app.StatusHistory[0].Timestamp)
	assert.NotNil(t, app.Documents)
	assert.Empty(t, app.Documents)

	stored, err := f.store.FindByID(context.Background(), app.ID)
	require.NoError(t, err)
	assertHistoryConsistent(t, stored)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]func(*CreateInput){
		"bad type":        func(in *CreateInput) { in.ApplicationType = "visa" },
		"no first name":   func(in *CreateInput) { in.PersonalInfo.FirstName = " " },
		"no birth date":   func(in *CreateInput) { in.PersonalInfo.DateOfBirth = time.Time{} },
		"future birth":    func(in *CreateInput) { in.PersonalInfo.DateOfBirth = fixedNow.AddDate(0, 0, 1) },
		"no birth place":  func(in *CreateInput) { in.PersonalInfo.PlaceOfBirth = "" },
		"bad gender":      func(in *CreateInput) { in.PersonalInfo.Gender = "unknown" },
		"bad district":    func(in *CreateInput) { in.ContactInfo.Address.District = "Gauteng" },
		"bad marital val": func(in *CreateInput) { in.PersonalInfo.MaritalStatus = "engaged" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validInput(models.ApplicationTypeNationalID)
			mutate(&input)
			_, err := f.svc.Create(context.Background(), f.owner, input)
			assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
		})
	}
}

func TestSubmit_OnlyApplicantFromDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.create(t, models.ApplicationTypePassport)

	_, err := f.svc.Submit(ctx, f.other, app.ID)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	_, err = f.svc.Submit(ctx, f.admin, app.ID)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	submitted, err := f.svc.Submit(ctx, f.owner, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, submitted.ApplicationStatus)
	assertHistoryConsistent(t, submitted)

	_, err = f.svc.Submit(ctx, f.owner, app.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))
	assert.Equal(t, "Application has already been submitted", apperror.Message(err))
}

func TestSubmit_Missing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), f.owner, uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestPassportScenario_IssuedSetsDocumentNumberAndFiveYearExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.create(t, models.ApplicationTypePassport)

	_, err := f.svc.Submit(ctx, f.owner, app.ID)
	require.NoError(t, err)

	issued, err := f.svc.ChangeStatus(ctx, f.admin, app.ID, StatusChange{Status: models.StatusIssued})
	require.NoError(t, err)

	assert.Equal(t, models.StatusIssued, issued.ApplicationStatus)
	assert.Equal(t, "P12345678", issued.DocumentNumber)
	require.NotNil(t, issued.IssueDate)
	require.NotNil(t, issued.ExpiryDate)
	assert.Equal(t, fixedNow, *issued.IssueDate)
	assert.Equal(t, issued.IssueDate.AddDate(5, 0, 0), *issued.ExpiryDate)

	stored, err := f.store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assertHistoryConsistent(t, stored)
	require.Len(t, stored.StatusHistory, 3)
	assert.Equal(t, "Status changed to issued", stored.StatusHistory[2].Notes)
	assert.Equal(t, f.admin.ID, stored.StatusHistory[2].ChangedBy)
	assert.Equal(t, "P12345678", stored.DocumentNumber)

	f.recorder.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.EventTypeApplicationStatus && e.TargetID == app.ID
	}))
}

func TestIssued_NationalIDGetsTenYears(t *testing.T) {
	f := newFixture(t)
	app := f.create(t, models.ApplicationTypeNationalID)

	issued, err := f.svc.ChangeStatus(context.Background(), f.admin, app.ID, StatusChange{Status: models.StatusIssued})
	require.NoError(t, err)
	assert.Equal(t, issued.IssueDate.AddDate(10, 0, 0), *issued.ExpiryDate)
	assert.Equal(t, "NID12345678", issued.DocumentNumber)
}

func TestChangeStatus_RejectedRecordsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	withNotes := f.create(t, models.ApplicationTypePassport)
	rejected, err := f.svc.ChangeStatus(ctx, f.admin, withNotes.ID, StatusChange{Status: models.StatusRejected, Notes: "Photo unclear"})
	require.NoError(t, err)
	assert.Equal(t, "Photo unclear", rejected.RejectionReason)

	withoutNotes := f.create(t, models.ApplicationTypePassport)
	rejected, err = f.svc.ChangeStatus(ctx, f.admin, withoutNotes.ID, StatusChange{Status: models.StatusRejected})
	require.NoError(t, err)
	assert.Empty(t, rejected.RejectionReason)
	last, _ := rejected.LastHistoryEntry()
	assert.Equal(t, "Status changed to rejected", last.Notes)
}

func TestChangeStatus_KeepsMirrorWrittenDuringTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.create(t, models.ApplicationTypePassport)

	ref := models.DocumentRef{
		DocumentID:   uuid.New(),
		DocumentType: models.DocumentTypePassport,
		Status:       models.DocumentStatusPendingVerification,
	}
	// an upload and a biometric capture commit after the application was loaded
	f.svc.numberer = func(prefix string) (string, error) {
		require.NoError(t, f.store.SetDocuments(ctx, app.ID, []models.DocumentRef{ref}))
		require.NoError(t, f.store.SetBiometricsCaptured(ctx, app.ID, true))
		return prefix + "12345678", nil
	}

	_, err := f.svc.ChangeStatus(ctx, f.admin, app.ID, StatusChange{Status: models.StatusIssued})
	require.NoError(t, err)

	stored, err := f.store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIssued, stored.ApplicationStatus)
	assert.Equal(t, []models.DocumentRef{ref}, stored.DocumentRefs())
	assert.True(t, stored.BiometricsCaptured)
	assertHistoryConsistent(t, stored)
}

func TestChangeStatus_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.create(t, models.ApplicationTypeRenewal)

	_, err := f.svc.ChangeStatus(ctx, f.owner, app.ID, StatusChange{Status: models.StatusApproved})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	_, err = f.svc.ChangeStatus(ctx, f.admin, app.ID, StatusChange{})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, "Please provide a status", apperror.Message(err))

	_, err = f.svc.ChangeStatus(ctx, f.admin, app.ID, StatusChange{Status: "archived"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.ChangeStatus(ctx, f.admin, uuid.New(), StatusChange{Status: models.StatusApproved})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.ChangeStatus(ctx, f.admin, app.ID, StatusChange{Status: models.StatusDraft})
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))

	// forward jumps are allowed
	_, err = f.svc.ChangeStatus(ctx, f.admin, app.ID, StatusChange{Status: models.StatusIssued})
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, f.admin, app.ID, StatusChange{Status: models.StatusUnderReview})
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))

	stored, err := f.store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assertHistoryConsistent(t, stored)
	assert.Len(t, stored.StatusHistory, 2)
}

func TestGet_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.create(t, models.ApplicationTypePassport)

	_, err := f.svc.Get(ctx, f.other, app.ID)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	got, err := f.svc.Get(ctx, f.owner, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	_, err = f.svc.Get(ctx, f.admin, app.ID)
	assert.NoError(t, err)
}

func TestUpdate_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.create(t, models.ApplicationTypePassport)

	notes := "Applicant called in"
	_, err := f.svc.Update(ctx, f.owner, app.ID, UpdateInput{OfficerNotes: &notes})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	_, err = f.svc.Update(ctx, f.other, app.ID, UpdateInput{})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	contact := models.ContactInfo{PhoneNumber: "+26658000000", Address: models.Address{District: "Leribe"}}
	updated, err := f.svc.Update(ctx, f.owner, app.ID, UpdateInput{ContactInfo: &contact})
	require.NoError(t, err)
	assert.Equal(t, "Leribe", updated.ContactInfo.Address.District)

	_, err = f.svc.Submit(ctx, f.owner, app.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.owner, app.ID, UpdateInput{ContactInfo: &contact})
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))

	updated, err = f.svc.Update(ctx, f.admin, app.ID, UpdateInput{OfficerNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.OfficerNotes)
	assert.Equal(t, models.StatusSubmitted, updated.ApplicationStatus)

	stored, err := f.store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assertHistoryConsistent(t, stored)
}

func TestDelete_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.create(t, models.ApplicationTypePassport)

	assert.True(t, apperror.Is(f.svc.Delete(ctx, f.other, app.ID), apperror.KindUnauthorized))

	_, err := f.svc.Submit(ctx, f.owner, app.ID)
	require.NoError(t, err)
	assert.True(t, apperror.Is(f.svc.Delete(ctx, f.owner, app.ID), apperror.KindInvalidTransition))

	require.NoError(t, f.svc.Delete(ctx, f.admin, app.ID))
	_, err = f.store.FindByID(ctx, app.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	f.recorder.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.EventTypeApplicationDelete
	}))

	draft := f.create(t, models.ApplicationTypeNationalID)
	assert.NoError(t, f.svc.Delete(ctx, f.owner, draft.ID))
}

func TestLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, models.ApplicationTypePassport)
	second := f.create(t, models.ApplicationTypeNationalID)
	_, err := f.svc.Create(ctx, f.other, validInput(models.ApplicationTypePassport))
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	_, err = f.svc.ListAll(ctx, f.owner, storage.ApplicationFilter{})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	all, err := f.svc.ListAll(ctx, f.admin, storage.ApplicationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	passports, err := f.svc.ListAll(ctx, f.admin, storage.ApplicationFilter{
		Type:        models.ApplicationTypePassport,
		ApplicantID: &f.owner.ID,
	})
	require.NoError(t, err)
	require.Len(t, passports, 1)
	assert.Equal(t, first.ID, passports[0].ID)

	_, err = f.svc.ListAll(ctx, f.admin, storage.ApplicationFilter{Status: "archived"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
