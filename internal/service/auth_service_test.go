package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/security/auth"
)

func newAuthService(users *memUserRepo, mailer *fakeMailer) (*AuthService, *auth.TokenManager) {
	cfg := testConfig()
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)
	hasher := auth.NewHasher(cfg.BcryptCost)
	return NewAuthService(users, hasher, tokens, mailer, testAudit(), cfg, testLogger()), tokens
}

func seedUser(t *testing.T, users *memUserRepo, email, password string, role domain.Role, tenants ...string) *domain.User {
	t.Helper()
	hasher := auth.NewHasher(4)
	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{
		UserName:     "Seed User",
		Email:        email,
		Role:         role,
		Active:       true,
		PasswordHash: hash,
		Tenants:      tenants,
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return u
}

func TestSignupPasswordMismatch(t *testing.T) {
	svc, _ := newAuthService(newMemUserRepo(), &fakeMailer{})

	_, _, err := svc.Signup(context.Background(), SignupInput{
		UserName:        "Ada",
		Email:           "ada@example.com",
		Password:        "secret123",
		PasswordConfirm: "secret124",
	})
	if err == nil || err.Error() != "Passwords do not match" {
		t.Fatalf("err = %v, want passwords mismatch", err)
	}
}

func TestSignupCreatesUserAndSession(t *testing.T) {
	users := newMemUserRepo()
	mailer := &fakeMailer{}
	svc, tokens := newAuthService(users, mailer)

	user, token, err := svc.Signup(context.Background(), SignupInput{
		UserName:        "Ada",
		Email:           "Ada@Example.com",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		TenantID:        "acme",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("role = %q, want user", user.Role)
	}
	if user.PasswordHash == "secret123" || user.PasswordHash == "" {
		t.Error("password stored without hashing")
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.UserID != user.ID || claims.TenantID != "acme" {
		t.Errorf("claims = %+v", claims)
	}
	if len(mailer.welcomes) != 1 {
		t.Errorf("welcome mails = %d, want 1", len(mailer.welcomes))
	}
}

func TestSignupClaimsInvite(t *testing.T) {
	users := newMemUserRepo()
	svc, _ := newAuthService(users, &fakeMailer{})

	invite := &domain.User{
		Email:    "invitee@example.com",
		Role:     domain.RoleEditor,
		Active:   true,
		IsInvite: true,
		Tenants:  []string{"acme"},
	}
	if err := users.Create(context.Background(), invite); err != nil {
		t.Fatalf("seed invite: %v", err)
	}

	user, _, err := svc.Signup(context.Background(), SignupInput{
		UserName:        "Grace",
		Email:           "invitee@example.com",
		Password:        "secret123",
		PasswordConfirm: "secret123",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.ID != invite.ID {
		t.Errorf("claimed id = %q, want %q", user.ID, invite.ID)
	}
	if user.IsInvite {
		t.Error("invite flag not cleared")
	}
	if user.Role != domain.RoleEditor {
		t.Errorf("role = %q, want invited role kept", user.Role)
	}
	if user.PrimaryTenant() != "acme" {
		t.Errorf("tenants = %v, want invite membership kept", user.Tenants)
	}
}

func TestLoginScenarios(t *testing.T) {
	users := newMemUserRepo()
	svc, tokens := newAuthService(users, &fakeMailer{})
	seedUser(t, users, "ada@example.com", "secret123", domain.RoleUser, "acme", "globex")

	// Unknown email and wrong password are the same failure.
	for _, tc := range []struct{ email, password string }{
		{"nobody@example.com", "secret123"},
		{"ada@example.com", "wrong"},
	} {
		_, _, err := svc.Login(context.Background(), tc.email, tc.password, "")
		if err == nil || err.Error() != "Incorrect email or password" {
			t.Errorf("login(%q): err = %v", tc.email, err)
		}
	}

	_, _, err := svc.Login(context.Background(), "", "", "")
	if apperror.From(err).Kind != apperror.KindValidation {
		t.Errorf("empty credentials: err = %v, want validation", err)
	}

	user, token, err := svc.Login(context.Background(), "ada@example.com", "secret123", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, _ := tokens.Verify(token)
	if claims.TenantID != "acme" {
		t.Errorf("default tenant = %q, want primary acme", claims.TenantID)
	}

	_, token, err = svc.Login(context.Background(), "ada@example.com", "secret123", "globex")
	if err != nil {
		t.Fatalf("Login with tenant: %v", err)
	}
	claims, _ = tokens.Verify(token)
	if claims.TenantID != "globex" {
		t.Errorf("selected tenant = %q, want globex", claims.TenantID)
	}

	// A tenant the user does not belong to is rejected like bad credentials.
	_, _, err = svc.Login(context.Background(), "ada@example.com", "secret123", "initech")
	if err == nil || err.Error() != "Incorrect email or password" {
		t.Errorf("foreign tenant: err = %v", err)
	}
	_ = user
}

func TestForgotPasswordMailFailureClearsToken(t *testing.T) {
	users := newMemUserRepo()
	mailer := &fakeMailer{fail: true}
	svc, _ := newAuthService(users, mailer)
	u := seedUser(t, users, "ada@example.com", "secret123", domain.RoleUser, "acme")

	err := svc.ForgotPassword(context.Background(), "ada@example.com")
	if apperror.From(err).Kind != apperror.KindEmailDelivery {
		t.Fatalf("err = %v, want email delivery", err)
	}
	if u.PasswordResetTokenHash != "" || u.PasswordResetExpires != nil {
		t.Error("reset token not cleared after mail failure")
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _ := newAuthService(newMemUserRepo(), &fakeMailer{})
	err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	if apperror.From(err).Kind != apperror.KindNotFound {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestResetPasswordRoundTrip(t *testing.T) {
	users := newMemUserRepo()
	mailer := &fakeMailer{}
	svc, _ := newAuthService(users, mailer)
	u := seedUser(t, users, "ada@example.com", "old-secret", domain.RoleUser, "acme")

	if err := svc.ForgotPassword(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if len(mailer.resets) != 1 {
		t.Fatalf("reset mails = %d, want 1", len(mailer.resets))
	}
	// The stored hash must never equal anything mailed out.
	if strings.Contains(mailer.resets[0], u.PasswordResetTokenHash) {
		t.Error("stored token hash appears in the mailed URL")
	}

	url := mailer.resets[0]
	plain := url[strings.LastIndex(url, "/")+1:]

	if _, _, err := svc.ResetPassword(context.Background(), "wrong-token", "new-secret", "new-secret"); err == nil {
		t.Error("bogus token accepted")
	}

	user, token, err := svc.ResetPassword(context.Background(), plain, "new-secret", "new-secret")
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if token == "" {
		t.Error("no session issued")
	}
	if user.PasswordResetTokenHash != "" {
		t.Error("reset token survived consumption")
	}
	if user.PasswordChangedAt == nil || !user.PasswordChangedAt.Before(time.Now()) {
		t.Error("password change not stamped in the past")
	}

	// The token is single-use.
	if _, _, err := svc.ResetPassword(context.Background(), plain, "x", "x"); err == nil {
		t.Error("consumed token accepted again")
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	users := newMemUserRepo()
	svc, _ := newAuthService(users, &fakeMailer{})
	u := seedUser(t, users, "ada@example.com", "old-secret", domain.RoleUser)

	plain, hash, err := auth.NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	expired := time.Now().Add(-time.Minute)
	u.PasswordResetTokenHash = hash
	u.PasswordResetExpires = &expired

	_, _, err = svc.ResetPassword(context.Background(), plain, "new-secret", "new-secret")
	if err == nil || err.Error() != "Token is invalid or has expired" {
		t.Errorf("err = %v, want expiry failure", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	users := newMemUserRepo()
	svc, tokens := newAuthService(users, &fakeMailer{})
	u := seedUser(t, users, "ada@example.com", "old-secret", domain.RoleUser, "acme")

	_, _, err := svc.UpdatePassword(context.Background(), u.ID, "wrong", "new-secret", "new-secret")
	if err == nil || err.Error() != "Your current password is wrong." {
		t.Fatalf("wrong current: err = %v", err)
	}

	_, _, err = svc.UpdatePassword(context.Background(), u.ID, "old-secret", "new-secret", "different")
	if apperror.From(err).Kind != apperror.KindValidation {
		t.Fatalf("mismatch: err = %v", err)
	}

	_, token, err := svc.UpdatePassword(context.Background(), u.ID, "old-secret", "new-secret", "new-secret")
	if err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	// The fresh session must survive its own credential change.
	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("new token invalid: %v", err)
	}
	if u.ChangedPasswordAfter(claims.IssuedAt.Time) {
		t.Error("fresh session invalidated by its own password change")
	}
}
