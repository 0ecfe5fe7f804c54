package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/mail"
	"github.com/cloudylake/tenantapi/internal/security"
	"github.com/cloudylake/tenantapi/internal/security/audit"
	"github.com/cloudylake/tenantapi/internal/security/auth"
	"github.com/cloudylake/tenantapi/pkg/config"
)

// AuthService implements the credential lifecycle: signup, login,
// password reset and password change. Every path that touches a secret
// goes through the injected hasher; every session comes from the token
// manager.
type AuthService struct {
	users   domain.UserRepository
	hasher  *auth.Hasher
	tokens  *auth.TokenManager
	mailer  mail.Mailer
	audit   *audit.Logger
	jwtCfg  config.JWTConfig
	baseURL string
	logger  *slog.Logger
}

// NewAuthService creates the auth service
func NewAuthService(
	users domain.UserRepository,
	hasher *auth.Hasher,
	tokens *auth.TokenManager,
	mailer mail.Mailer,
	auditLog *audit.Logger,
	cfg *config.Config,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		mailer:  mailer,
		audit:   auditLog,
		jwtCfg:  cfg.JWT,
		baseURL: cfg.PublicURL,
		logger:  logger,
	}
}

// SignupInput carries the signup request fields
type SignupInput struct {
	UserName        string `json:"userName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	TenantID        string `json:"tenantId"`
}

// Signup registers a new user, or claims a pending invite when one
// exists for the email. Returns the created user and a fresh session
// token bound to the user's primary tenant.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.User, string, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || input.Password == "" {
		return nil, "", apperror.Validation("Please provide email and password!")
	}
	if input.Password != input.PasswordConfirm {
		return nil, "", apperror.Validation("Passwords do not match")
	}
	if input.UserName == "" {
		return nil, "", apperror.Validation("Please tell us your name!")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, "", apperror.Internal(err)
	}

	user, err := s.users.GetInviteByEmail(ctx, input.Email)
	if err == nil {
		// Claiming an invite keeps the invited role and memberships.
		user.UserName = input.UserName
		user.IsInvite = false
		user.PasswordHash = hash
		if err := s.users.Update(ctx, user); err != nil {
			return nil, "", err
		}
	} else {
		user = &domain.User{
			UserName:     input.UserName,
			Email:        input.Email,
			Role:         domain.RoleUser,
			Active:       true,
			PasswordHash: hash,
		}
		if input.TenantID != "" {
			user.Tenants = []string{input.TenantID}
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, "", err
		}
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.UserName); err != nil {
		s.logger.Warn("welcome mail failed",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
	}

	token, err := s.tokens.Issue(user.ID, user.PrimaryTenant(), s.jwtCfg.SessionTTL)
	if err != nil {
		return nil, "", apperror.Internal(err)
	}
	return user, token, nil
}

// Login authenticates a user by email and password and returns a
// session token. The tenantID parameter selects which of the user's
// tenants the session acts in; empty means the primary tenant.
func (s *AuthService) Login(ctx context.Context, email, password, tenantID string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", apperror.Validation("Please provide email and password!")
	}

	user, err := s.users.GetByEmail(ctx, email, false)
	if err != nil || user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		s.audit.LogLogin(ctx, tenantID, email, "denied")
		return nil, "", apperror.Unauthorized("Incorrect email or password")
	}

	acting := user.PrimaryTenant()
	if tenantID != "" {
		if err := security.ValidateTenantAccess(user, tenantID); err != nil {
			s.audit.LogLogin(ctx, tenantID, user.ID, "denied")
			return nil, "", apperror.Unauthorized("Incorrect email or password")
		}
		acting = tenantID
	}

	token, err := s.tokens.Issue(user.ID, acting, s.jwtCfg.SessionTTL)
	if err != nil {
		return nil, "", apperror.Internal(err)
	}

	s.audit.LogLogin(ctx, acting, user.ID, "ok")
	return user, token, nil
}

// ForgotPassword generates a reset token, stores its hash, and mails
// the plain token to the user. A mail failure clears the stored token
// so no dangling reset capability survives.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)), false)
	if err != nil {
		return apperror.NotFound("There is no user with that email address.")
	}

	plain, hash, err := auth.NewResetToken()
	if err != nil {
		return apperror.Internal(err)
	}

	expires := time.Now().Add(s.jwtCfg.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, hash, expires); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", s.baseURL, plain)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.UserName, resetURL); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error("failed to clear reset token after mail failure",
				slog.String("user_id", user.ID),
				slog.String("error", clearErr.Error()),
			)
		}
		return apperror.EmailDelivery(err)
	}

	s.audit.LogAction(ctx, "", user.ID, "password_reset_requested", "user", user.ID, "ok")
	return nil
}

// ResetPassword consumes a plain reset token and sets a new password.
// The lookup hashes the token and checks expiry in the same predicate,
// so an expired or unknown token is one indistinguishable failure.
func (s *AuthService) ResetPassword(ctx context.Context, plainToken, password, passwordConfirm string) (*domain.User, string, error) {
	if password == "" || password != passwordConfirm {
		return nil, "", apperror.Validation("Passwords do not match")
	}

	user, err := s.users.GetByResetTokenHash(ctx, auth.HashResetToken(plainToken), time.Now())
	if err != nil {
		return nil, "", apperror.Validation("Token is invalid or has expired")
	}

	token, err := s.setPassword(ctx, user, password)
	if err != nil {
		return nil, "", err
	}

	s.audit.LogAction(ctx, "", user.ID, "password_reset", "user", user.ID, "ok")
	return user, token, nil
}

// UpdatePassword changes the password of a logged-in user after
// re-verifying the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, password, passwordConfirm string) (*domain.User, string, error) {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		return nil, "", err
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		return nil, "", apperror.Unauthorized("Your current password is wrong.")
	}
	if password == "" || password != passwordConfirm {
		return nil, "", apperror.Validation("Passwords do not match")
	}

	token, err := s.setPassword(ctx, user, password)
	if err != nil {
		return nil, "", err
	}

	s.audit.LogAction(ctx, "", user.ID, "password_changed", "user", user.ID, "ok")
	return user, token, nil
}

// setPassword persists a new secret and issues a fresh session. The
// change timestamp is backdated one second so the new token, issued in
// the same instant, is not itself invalidated.
func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", apperror.Internal(err)
	}

	changedAt := time.Now().Add(-time.Second)
	if err := s.users.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		return "", err
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt

	token, err := s.tokens.Issue(user.ID, user.PrimaryTenant(), s.jwtCfg.SessionTTL)
	if err != nil {
		return "", apperror.Internal(err)
	}
	return token, nil
}
