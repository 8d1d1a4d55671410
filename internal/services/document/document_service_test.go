package document

import (
	"context"
	"os"
	"strings"
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
	"github.com/civilregistry/backend/internal/storage/memory"
	"github.com/civilregistry/backend/internal/storage/uploads"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) ScheduleReconcile(ctx context.Context, applicationID uuid.UUID) error {
	args := m.Called(ctx, applicationID)
	return args.Error(0)
}

var fixedNow = time.Date(2024, time.April, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	docs      *memory.DocumentStore
	apps      *memory.ApplicationStore
	scheduler *mockScheduler
	recorder  *mockRecorder
	owner     authz.Caller
	other     authz.Caller
	admin     authz.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	docs := memory.NewDocumentStore()
	apps := memory.NewApplicationStore()
	scheduler := &mockScheduler{}
	recorder := &mockRecorder{}
	recorder.On("Record", mock.Anything, mock.Anything).Return().Maybe()

	files := uploads.NewLocalStore(t.TempDir(), 1<<20)
	svc := NewService(docs, apps, files, scheduler, recorder, metrics.New(), logging.Discard())
	svc.now = func() time.Time { return fixedNow }

	return &fixture{
		svc:       svc,
		docs:      docs,
		apps:      apps,
		scheduler: scheduler,
		recorder:  recorder,
		owner:     authz.Caller{ID: uuid.New(), Email: "owner@example.com", Role: authz.RoleApplicant},
		other:     authz.Caller{ID: uuid.New(), Email: "other@example.com", Role: authz.RoleApplicant},
		admin:     authz.Caller{ID: uuid.New(), Email: "admin@example.com", Role: authz.RoleAdmin},
	}
}

func (f *fixture) application(t *testing.T, status models.ApplicationStatus) *models.Application {
	t.Helper()
	app := &models.Application{
		ApplicationType:   models.ApplicationTypePassport,
		ApplicationStatus: status,
		ApplicantID:       f.owner.ID,
	}
	require.NoError(t, f.apps.Create(context.Background(), app))
	return app
}

func pdf(name string) uploads.Incoming {
	content := "%PDF-1.4 test"
	return uploads.Incoming{
		OriginalName: name,
		MimeType:     "application/pdf",
		Size:         int64(len(content)),
		Content:      strings.NewReader(content),
	}
}

func (f *fixture) upload(t *testing.T, app *models.Application, docType models.DocumentType) *models.Document {
	t.Helper()
	doc, err := f.svc.Upload(context.Background(), f.owner, UploadInput{
		ApplicationID: app.ID,
		DocumentType:  docType,
		File:          pdf("birth certificate.pdf"),
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) mirror(t *testing.T, appID uuid.UUID) []models.DocumentRef {
	t.Helper()
	app, err := f.apps.FindByID(context.Background(), appID)
	require.NoError(t, err)
	return app.DocumentRefs()
}

func TestUpload_AppendsMirrorEntry(t *testing.T) {
	f := newFixture(t)
	app := f.application(t, models.StatusDraft)

	doc := f.upload(t, app, models.DocumentTypeIDCard)

	assert.Equal(t, models.DocumentStatusPendingVerification, doc.Status)
	assert.Equal(t, fixedNow, doc.UploadDate)
	assert.Equal(t, "birth certificate.pdf", doc.OriginalName)
	_, err := os.Stat(doc.Path)
	require.NoError(t, err)

	refs := f.mirror(t, app.ID)
	require.Len(t, refs, 1)
	assert.Equal(t, doc.Ref(), refs[0])
	f.scheduler.AssertNotCalled(t, "ScheduleReconcile", mock.Anything, mock.Anything)
}

func TestUpload_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, models.StatusDraft)

	_, err := f.svc.Upload(ctx, f.owner, UploadInput{ApplicationID: app.ID, DocumentType: "selfie", File: pdf("a.pdf")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Upload(ctx, f.other, UploadInput{ApplicationID: app.ID, DocumentType: models.DocumentTypeOther, File: pdf("a.pdf")})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.Upload(ctx, f.owner, UploadInput{ApplicationID: uuid.New(), DocumentType: models.DocumentTypeOther, File: pdf("a.pdf")})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	exe := pdf("tool.exe")
	exe.MimeType = "application/octet-stream"
	_, err = f.svc.Upload(ctx, f.owner, UploadInput{ApplicationID: app.ID, DocumentType: models.DocumentTypeOther, File: exe})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	assert.Empty(t, f.mirror(t, app.ID))
}

func TestUpload_MirrorFailureSchedulesRepair(t *testing.T) {
	f := newFixture(t)
	app := f.application(t, models.StatusDraft)
	f.apps.FailSetDocuments = true
	f.scheduler.On("ScheduleReconcile", mock.Anything, app.ID).Return(nil).Once()

	doc := f.upload(t, app, models.DocumentTypePassport)
	f.scheduler.AssertExpectations(t)

	f.apps.FailSetDocuments = false
	require.NoError(t, f.svc.ReconcileMirror(context.Background(), app.ID))

	refs := f.mirror(t, app.ID)
	require.Len(t, refs, 1)
	assert.Equal(t, doc.ID, refs[0].DocumentID)
}

func TestVerify_PropagatesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, models.StatusSubmitted)
	first := f.upload(t, app, models.DocumentTypeIDCard)
	second := f.upload(t, app, models.DocumentTypeUtilityBill)

	rejected, err := f.svc.Verify(ctx, f.admin, second.ID, VerifyInput{
		Status:          models.DocumentStatusRejected,
		RejectionReason: "Document is blurry",
	})
	require.NoError(t, err)
	assert.Equal(t, "Document is blurry", rejected.RejectionReason)
	require.NotNil(t, rejected.VerifiedBy)
	assert.Equal(t, f.admin.ID, *rejected.VerifiedBy)
	assert.Equal(t, fixedNow, *rejected.VerificationDate)

	refs := f.mirror(t, app.ID)
	require.Len(t, refs, 2)
	assert.Equal(t, first.ID, refs[0].DocumentID)
	assert.Equal(t, models.DocumentStatusPendingVerification, refs[0].Status)
	assert.Equal(t, models.DocumentStatusRejected, refs[1].Status)

	verified, err := f.svc.Verify(ctx, f.admin, second.ID, VerifyInput{Status: models.DocumentStatusVerified})
	require.NoError(t, err)
	assert.Empty(t, verified.RejectionReason)
	assert.Equal(t, models.DocumentStatusVerified, f.mirror(t, app.ID)[1].Status)

	f.recorder.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.EventTypeDocumentVerify && e.TargetID == second.ID
	}))
}

func TestVerify_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, models.StatusSubmitted)
	doc := f.upload(t, app, models.DocumentTypeIDCard)

	_, err := f.svc.Verify(ctx, f.owner, doc.ID, VerifyInput{Status: models.DocumentStatusVerified})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	_, err = f.svc.Verify(ctx, f.admin, doc.ID, VerifyInput{Status: models.DocumentStatusPendingVerification})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, `Invalid status. Must be "verified" or "rejected"`, apperror.Message(err))

	_, err = f.svc.Verify(ctx, f.admin, uuid.New(), VerifyInput{Status: models.DocumentStatusVerified})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	stored, err := f.docs.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPendingVerification, stored.Status)
}

func TestVerify_MissingMirrorEntrySchedulesRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, models.StatusSubmitted)
	doc := f.upload(t, app, models.DocumentTypeIDCard)
	require.NoError(t, f.apps.SetDocuments(ctx, app.ID, nil))

	f.scheduler.On("ScheduleReconcile", mock.Anything, app.ID).Return(nil).Once()
	_, err := f.svc.Verify(ctx, f.admin, doc.ID, VerifyInput{Status: models.DocumentStatusVerified})
	require.NoError(t, err)
	f.scheduler.AssertExpectations(t)

	count, err := f.svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	refs := f.mirror(t, app.ID)
	require.Len(t, refs, 1)
	assert.Equal(t, models.DocumentStatusVerified, refs[0].Status)
}

func TestGetAndList_Access(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, models.StatusDraft)
	doc := f.upload(t, app, models.DocumentTypeIDCard)

	_, err := f.svc.Get(ctx, f.other, doc.ID)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	got, err := f.svc.Get(ctx, f.admin, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	mine, err := f.svc.ListByApplication(ctx, f.owner, app.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.svc.ListByApplication(ctx, f.other, app.ID)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	all, err := f.svc.ListByApplication(ctx, f.admin, app.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDelete_RemovesExactlyOneMirrorEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, models.StatusDraft)
	keep := f.upload(t, app, models.DocumentTypeIDCard)
	drop := f.upload(t, app, models.DocumentTypeUtilityBill)

	require.NoError(t, f.svc.Delete(ctx, f.owner, drop.ID))

	refs := f.mirror(t, app.ID)
	require.Len(t, refs, 1)
	assert.Equal(t, keep.ID, refs[0].DocumentID)

	_, err := f.docs.FindByID(ctx, drop.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = os.Stat(drop.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestDelete_SubmittedApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, models.StatusDraft)
	doc := f.upload(t, app, models.DocumentTypeIDCard)

	stored, err := f.apps.FindByID(ctx, app.ID)
	require.NoError(t, err)
	stored.ApplicationStatus = models.StatusSubmitted
	require.NoError(t, f.apps.Update(ctx, stored))

	err = f.svc.Delete(ctx, f.other, doc.ID)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	err = f.svc.Delete(ctx, f.owner, doc.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))
	assert.Len(t, f.mirror(t, app.ID), 1)

	require.NoError(t, f.svc.Delete(ctx, f.admin, doc.ID))
	assert.Empty(t, f.mirror(t, app.ID))
	f.recorder.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.EventTypeDocumentDelete && e.TargetID == doc.ID
	}))
}

func TestReconcileMirror_MissingApplication(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.svc.ReconcileMirror(context.Background(), uuid.New()))
}
