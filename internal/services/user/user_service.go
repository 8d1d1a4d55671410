package user

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/metrics"
	"github.com/civilregistry/backend/internal/models"
	"github.com/civilregistry/backend/internal/security"
	"github.com/civilregistry/backend/internal/security/audit"
	"github.com/civilregistry/backend/internal/storage"
	"github.com/civilregistry/backend/internal/utils"
)

// Service handles account registration, login and MFA
type Service struct {
	users   storage.UserStore
	tokens  *utils.TokenIssuer
	policy  utils.PasswordPolicy
	lockout *security.LoginProtection
	mfa     utils.MFAConfig
	audit   audit.Recorder
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewService creates a user Service
func NewService(
	users storage.UserStore,
	tokens *utils.TokenIssuer,
	mfa utils.MFAConfig,
	recorder audit.Recorder,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		policy:  utils.DefaultPasswordPolicy(),
		lockout: security.NewLoginProtection(security.DefaultLoginProtectionConfig()),
		mfa:     mfa,
		audit:   recorder,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// RegisterInput is the body of a registration request
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginInput is the body of a login request
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totpCode"`
}

// Session is an issued bearer token with the account it belongs to
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Register creates an applicant account
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := s.policy.ValidatePassword(input.Password, email); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	user, err := s.createAccount(ctx, email, input.Password, strings.TrimSpace(input.FirstName), strings.TrimSpace(input.LastName), authz.RoleApplicant)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRegistration()
	s.log.WithField("user_id", user.ID).Info("user registered")

	return s.issue(user)
}

// Login checks credentials, and the TOTP code when MFA is enabled
func (s *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, apperror.Validation("Please provide an email and password")
	}

	ip := audit.ClientIP(ctx)
	if blocked, _ := s.lockout.IsBlocked(email, ip); blocked {
		return nil, apperror.Unauthorized("Too many failed login attempts. Please try again later")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if apperror.Is(err, apperror.KindNotFound) {
		s.lockout.RecordFailure(email, ip)
		return nil, apperror.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}

	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		s.lockout.RecordFailure(email, ip)
		s.recordAuth(ctx, user.ID, "invalid password", false)
		return nil, apperror.Unauthorized("Invalid credentials")
	}

	if user.MFAEnabled {
		if input.TOTPCode == "" {
			return nil, apperror.Unauthorized("MFA code required")
		}
		if !utils.ValidateTOTPCode(user.MFASecret, input.TOTPCode, s.now(), s.mfa) {
			s.lockout.RecordFailure(email, ip)
			s.recordAuth(ctx, user.ID, "invalid MFA code", false)
			return nil, apperror.Unauthorized("Invalid MFA code")
		}
	}

	s.lockout.Reset(email)
	now := s.now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}
	s.recordAuth(ctx, user.ID, "login", true)

	return s.issue(user)
}

// Me returns the caller's account
func (s *Service) Me(ctx context.Context, caller authz.Caller) (*models.User, error) {
	return s.users.FindByID(ctx, caller.ID)
}

// SetupMFA generates a new TOTP secret for the caller. MFA stays disabled
// until EnableMFA confirms a code generated from it.
func (s *Service) SetupMFA(ctx context.Context, caller authz.Caller) (*utils.MFAKey, error) {
	user, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, apperror.Validation("MFA is already enabled")
	}

	key, err := utils.GenerateTOTPKey(s.mfa, user.Email)
	if err != nil {
		return nil, apperror.Internal("Failed to generate MFA secret", err)
	}

	user.MFASecret = key.Secret
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return key, nil
}

// EnableMFA turns MFA on once code matches the pending secret
func (s *Service) EnableMFA(ctx context.Context, caller authz.Caller, code string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if user.MFASecret == "" {
		return nil, apperror.Validation("Please set up MFA first")
	}
	if !utils.ValidateTOTPCode(user.MFASecret, code, s.now(), s.mfa) {
		return nil, apperror.Validation("Invalid MFA code")
	}

	user.MFAEnabled = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		Type:        audit.EventTypeMFA,
		Description: "MFA enabled",
		ActorID:     user.ID,
		TargetID:    user.ID,
		Success:     true,
	})
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist yet
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin() {
			s.log.WithField("email", email).Warn("bootstrap admin email belongs to a non-admin account")
		}
		return nil
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		return err
	}

	user, err := s.createAccount(ctx, email, password, "System", "Administrator", authz.RoleAdmin)
	if err != nil {
		return err
	}
	s.log.WithField("user_id", user.ID).Info("bootstrap admin created")
	return nil
}

func (s *Service) createAccount(ctx context.Context, email, password, firstName, lastName string, role authz.Role) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperror.Internal("Failed to process password", err)
	}

	user := &models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) issue(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperror.Internal("Failed to generate token", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *Service) recordAuth(ctx context.Context, userID uuid.UUID, description string, success bool) {
	s.audit.Record(ctx, audit.Event{
		Type:        audit.EventTypeAuth,
		Description: description,
		ActorID:     userID,
		TargetID:    userID,
		Success:     success,
	})
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.Validation("Please provide an email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.Validation("Please provide a valid email")
	}
	return email, nil
}
