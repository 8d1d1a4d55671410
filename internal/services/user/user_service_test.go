package user

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/logging"
	"github.com/civilregistry/backend/internal/metrics"
	"github.com/civilregistry/backend/internal/security"
	"github.com/civilregistry/backend/internal/security/audit"
	"github.com/civilregistry/backend/internal/storage/memory"
	"github.com/civilregistry/backend/internal/utils"
)

func newService(t *testing.T) (*Service, *memory.UserStore, *utils.TokenIssuer) {
	t.Helper()
	store := memory.NewUserStore()
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	svc := NewService(store, tokens, utils.DefaultMFAConfig("CivilRegistry"), audit.Nop{}, metrics.New(), logging.Discard())
	return svc, store, tokens
}

func register(t *testing.T, svc *Service, email string) *Session {
	t.Helper()
	session, err := svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "Maloti!Sky2024",
		FirstName: "Tsepo",
		LastName:  "Mohapi",
	})
	require.NoError(t, err)
	return session
}

func TestRegister_IssuesApplicantToken(t *testing.T) {
	svc, _, tokens := newService(t)

	session := register(t, svc, " Tsepo@Example.com ")
	assert.Equal(t, "tsepo@example.com", session.User.Email)
	assert.Equal(t, authz.RoleApplicant, session.User.Role)
	assert.NotEqual(t, "Maloti!Sky2024", session.User.PasswordHash)

	claims, err := tokens.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, authz.RoleApplicant, claims.Role)
}

func TestRegister_Rejections(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "tsepo@example.com")

	_, err := svc.Register(ctx, RegisterInput{Email: "TSEPO@example.com", Password: "Another!Pass99"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Equal(t, "User already exists", apperror.Message(err))

	_, err = svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "Another!Pass99"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.Register(ctx, RegisterInput{Email: "short@example.com", Password: "abc"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestLogin(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	registered := register(t, svc, "tsepo@example.com")

	_, err := svc.Login(ctx, LoginInput{Email: "tsepo@example.com", Password: "wrong-password"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
	assert.Equal(t, "Invalid credentials", apperror.Message(err))

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Maloti!Sky2024"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
	assert.Equal(t, "Invalid credentials", apperror.Message(err))

	session, err := svc.Login(ctx, LoginInput{Email: "TSEPO@example.com", Password: "Maloti!Sky2024"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)

	stored, err := store.FindByID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogin_LocksOutAfterRepeatedFailures(t *testing.T) {
	svc, _, _ := newService(t)
	register(t, svc, "tsepo@example.com")
	ctx := audit.WithRequestInfo(context.Background(), "192.0.2.10", "test")

	for i := 0; i < security.DefaultLoginProtectionConfig().MaxAttemptsPerEmail; i++ {
		_, err := svc.Login(ctx, LoginInput{Email: "tsepo@example.com", Password: "wrong-password"})
		require.Equal(t, "Invalid credentials", apperror.Message(err))
	}

	_, err := svc.Login(ctx, LoginInput{Email: "tsepo@example.com", Password: "Maloti!Sky2024"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
	assert.Contains(t, apperror.Message(err), "Too many failed login attempts")
}

func TestMFA_SetupEnableLogin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	registered := register(t, svc, "tsepo@example.com")
	caller := authz.Caller{ID: registered.User.ID, Email: registered.User.Email, Role: authz.RoleApplicant}

	key, err := svc.SetupMFA(ctx, caller)
	require.NoError(t, err)
	require.NotEmpty(t, key.Secret)

	_, err = svc.EnableMFA(ctx, caller, "000000")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	now := time.Now()
	svc.now = func() time.Time { return now }
	code, err := totp.GenerateCode(key.Secret, now)
	require.NoError(t, err)

	user, err := svc.EnableMFA(ctx, caller, code)
	require.NoError(t, err)
	assert.True(t, user.MFAEnabled)

	_, err = svc.SetupMFA(ctx, caller)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.Login(ctx, LoginInput{Email: "tsepo@example.com", Password: "Maloti!Sky2024"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	_, err = svc.Login(ctx, LoginInput{Email: "tsepo@example.com", Password: "Maloti!Sky2024", TOTPCode: code})
	require.NoError(t, err)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@registry.gov.ls", "Admin!Registry2024"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@registry.gov.ls", "Admin!Registry2024"))

	admin, err := store.FindByEmail(ctx, "admin@registry.gov.ls")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	session, err := svc.Login(ctx, LoginInput{Email: "admin@registry.gov.ls", Password: "Admin!Registry2024"})
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, session.User.Role)
}
