package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/storage"
)

var (
	_ storage.UserStore        = (*UserStore)(nil)
	_ storage.ApplicationStore = (*ApplicationStore)(nil)
	_ storage.DocumentStore    = (*DocumentStore)(nil)
	_ storage.PaymentStore     = (*PaymentStore)(nil)
	_ storage.BiometricStore   = (*BiometricStore)(nil)
)

func newApplication(applicant uuid.UUID, appType models.ApplicationType) *models.Application {
	app := &models.Application{
		ApplicationType: appType,
		ApplicantID:     applicant,
	}
	app.RecordStatus(models.StatusDraft, applicant, "Application created", time.Now())
	return app
}

func TestApplicationStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	app := newApplication(uuid.New(), models.ApplicationTypePassport)
	require.NoError(t, store.Create(ctx, app))

	loaded, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	loaded.StatusHistory[0].Notes = "changed"
	loaded.SetDocumentRefs([]models.DocumentRef{{DocumentID: uuid.New()}})

	again, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Application created", again.StatusHistory[0].Notes)
	assert.Empty(t, again.Documents)
}

func TestApplicationStore_WorkflowSavesKeepMirror(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	app := newApplication(uuid.New(), models.ApplicationTypePassport)
	require.NoError(t, store.Create(ctx, app))

	stale, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)

	ref := models.DocumentRef{
		DocumentID:   uuid.New(),
		DocumentType: models.DocumentTypePassport,
		Status:       models.DocumentStatusPendingVerification,
	}
	require.NoError(t, store.SetDocuments(ctx, app.ID, []models.DocumentRef{ref}))
	require.NoError(t, store.SetBiometricsCaptured(ctx, app.ID, true))

	stale.OfficerNotes = "Checked at counter"
	require.NoError(t, store.Update(ctx, stale))
	entry := stale.RecordStatus(models.StatusSubmitted, app.ApplicantID, "Application submitted by applicant", time.Now())
	require.NoError(t, store.AppendStatus(ctx, stale, entry))

	stored, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Checked at counter", stored.OfficerNotes)
	assert.Equal(t, models.StatusSubmitted, stored.ApplicationStatus)
	assert.Len(t, stored.StatusHistory, 2)
	assert.Equal(t, []models.DocumentRef{ref}, stored.DocumentRefs())
	assert.True(t, stored.BiometricsCaptured)
}

func TestApplicationStore_ListNewestFirstWithFilter(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	applicant := uuid.New()

	first := newApplication(applicant, models.ApplicationTypePassport)
	second := newApplication(applicant, models.ApplicationTypeNationalID)
	other := newApplication(uuid.New(), models.ApplicationTypePassport)
	for _, app := range []*models.Application{first, second, other} {
		require.NoError(t, store.Create(ctx, app))
	}

	mine, err := store.List(ctx, storage.ApplicationFilter{ApplicantID: &applicant})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	passports, err := store.List(ctx, storage.ApplicationFilter{Type: models.ApplicationTypePassport})
	require.NoError(t, err)
	assert.Len(t, passports, 2)
}

func TestApplicationStore_UpdateKeepsHistory(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	app := newApplication(uuid.New(), models.ApplicationTypePassport)
	require.NoError(t, store.Create(ctx, app))

	app.StatusHistory = nil
	app.OfficerNotes = "seen"
	require.NoError(t, store.Update(ctx, app))

	loaded, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.StatusHistory, 1)
	assert.Equal(t, "seen", loaded.OfficerNotes)
}

func TestApplicationStore_MissingIsNotFound(t *testing.T) {
	store := NewApplicationStore()
	_, err := store.FindByID(context.Background(), uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	err = store.SetDocuments(context.Background(), uuid.New(), nil)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDocumentStore_ListByApplicationFiltersUser(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()
	appID := uuid.New()
	owner := uuid.New()
	base := time.Now()

	docs := []*models.Document{
		{UserID: owner, ApplicationID: appID, UploadDate: base.Add(time.Minute)},
		{UserID: owner, ApplicationID: appID, UploadDate: base},
		{UserID: uuid.New(), ApplicationID: appID, UploadDate: base},
		{UserID: owner, ApplicationID: uuid.New(), UploadDate: base},
	}
	for _, d := range docs {
		require.NoError(t, store.Create(ctx, d))
	}

	own, err := store.ListByApplication(ctx, appID, &owner)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, docs[1].ID, own[0].ID)

	all, err := store.ListByApplication(ctx, appID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPaymentStore_UniqueTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewPaymentStore()
	txn := "pi_123"

	require.NoError(t, store.Create(ctx, &models.Payment{TransactionID: &txn}))
	err := store.Create(ctx, &models.Payment{TransactionID: &txn})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	// absent ids never collide
	require.NoError(t, store.Create(ctx, &models.Payment{}))
	require.NoError(t, store.Create(ctx, &models.Payment{}))
}

func TestPaymentStore_TotalsAndStale(t *testing.T) {
	ctx := context.Background()
	store := NewPaymentStore()
	user := uuid.New()
	now := time.Now()

	require.NoError(t, store.Create(ctx, &models.Payment{UserID: user, Amount: 150, Status: models.PaymentStatusCompleted, PaymentDate: now}))
	require.NoError(t, store.Create(ctx, &models.Payment{UserID: user, Amount: 50, Status: models.PaymentStatusCompleted, PaymentDate: now}))
	require.NoError(t, store.Create(ctx, &models.Payment{UserID: user, Amount: 75, Status: models.PaymentStatusPending, PaymentDate: now.Add(-48 * time.Hour)}))

	total, err := store.TotalCompletedByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 200.0, total)

	stale, err := store.ListStalePending(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, stale, 1)
}

func TestUserStore_EmailUnique(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	require.NoError(t, store.Create(ctx, &models.User{Email: "a@example.com"}))
	err := store.Create(ctx, &models.User{Email: "A@example.com"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	found, err := store.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", found.Email)
}
