package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/mail"
	"github.com/cloudylake/tenantapi/internal/security"
	"github.com/cloudylake/tenantapi/internal/security/audit"
	"github.com/cloudylake/tenantapi/internal/security/auth"
	"github.com/cloudylake/tenantapi/pkg/config"
)

// TenantService manages organizations and their memberships. Invites
// are created here: a placeholder user record plus a signed signup link
// mailed to the invitee.
type TenantService struct {
	tenants domain.TenantRepository
	users   domain.UserRepository
	tokens  *auth.TokenManager
	mailer  mail.Mailer
	audit   *audit.Logger
	jwtCfg  config.JWTConfig
	baseURL string
	logger  *slog.Logger
}

// NewTenantService creates the tenant service
func NewTenantService(
	tenants domain.TenantRepository,
	users domain.UserRepository,
	tokens *auth.TokenManager,
	mailer mail.Mailer,
	auditLog *audit.Logger,
	cfg *config.Config,
	logger *slog.Logger,
) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{
		tenants: tenants,
		users:   users,
		tokens:  tokens,
		mailer:  mailer,
		audit:   auditLog,
		jwtCfg:  cfg.JWT,
		baseURL: cfg.PublicURL,
		logger:  logger,
	}
}

// CreateTenantInput carries the tenant creation fields
type CreateTenantInput struct {
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	ManagerEmail string `json:"managerEmail"`
}

// Create provisions a tenant with a collision-checked slug. When a
// manager email is given, a manager invite is created and a signup link
// valid for the invite TTL is mailed out.
func (s *TenantService) Create(ctx context.Context, actorID string, input CreateTenantInput) (*domain.Tenant, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperror.Validation("A tenant must have a name")
	}

	slug, err := s.generateSlug(ctx, input.Name)
	if err != nil {
		return nil, err
	}

	tenant := &domain.Tenant{
		Slug:   slug,
		Name:   strings.TrimSpace(input.Name),
		Domain: strings.TrimSpace(input.Domain),
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}

	if email := strings.TrimSpace(input.ManagerEmail); email != "" {
		if err := s.invite(ctx, tenant.Slug, email, domain.RoleManager, s.mailer.SendTenantInvite); err != nil {
			s.logger.Warn("manager invite failed",
				slog.String("tenant_id", tenant.Slug),
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
	}

	s.audit.LogTenantChange(ctx, tenant.Slug, actorID, "tenant_created")
	return tenant, nil
}

// Get retrieves a tenant by its slug
func (s *TenantService) Get(ctx context.Context, slug string) (*domain.Tenant, error) {
	return s.tenants.GetBySlug(ctx, slug)
}

// List returns all tenants
func (s *TenantService) List(ctx context.Context) ([]*domain.Tenant, error) {
	return s.tenants.List(ctx)
}

// UpdateTenantInput carries the mutable tenant fields
type UpdateTenantInput struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// Update writes a tenant's mutable fields. The slug never changes.
func (s *TenantService) Update(ctx context.Context, actorID, slug string, input UpdateTenantInput) (*domain.Tenant, error) {
	tenant, err := s.tenants.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		tenant.Name = name
	}
	if dom := strings.TrimSpace(input.Domain); dom != "" {
		tenant.Domain = dom
	}
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}

	s.audit.LogTenantChange(ctx, slug, actorID, "tenant_updated")
	return tenant, nil
}

// Delete removes a tenant and detaches all its members
func (s *TenantService) Delete(ctx context.Context, actorID, slug string) error {
	tenant, err := s.tenants.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.tenants.Delete(ctx, tenant.ID); err != nil {
		return err
	}

	s.audit.LogTenantChange(ctx, slug, actorID, "tenant_deleted")
	return nil
}

// ListUsers lists the active members of a tenant
func (s *TenantService) ListUsers(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.User, error) {
	return s.users.ListByTenant(ctx, tenantID, opts)
}

// InviteUsers creates user invites for a comma-separated email list.
// Each invitee gets a placeholder record in the tenant and a mailed
// signup link. Failures are collected per address, not fatal overall.
func (s *TenantService) InviteUsers(ctx context.Context, actorID, tenantID, emails string, role domain.Role) ([]string, error) {
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, apperror.Validation("Invalid role")
	}
	if security.HasAtLeast(role, domain.RoleAdmin) {
		return nil, apperror.Validation("Admin users cannot be created through invites")
	}

	var invited []string
	for _, raw := range strings.Split(emails, ",") {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" {
			continue
		}
		if err := s.invite(ctx, tenantID, email, role, s.mailer.SendUserInvite); err != nil {
			s.logger.Warn("invite failed",
				slog.String("tenant_id", tenantID),
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.audit.LogInvite(ctx, tenantID, actorID, email)
		invited = append(invited, email)
	}

	if len(invited) == 0 {
		return nil, apperror.Validation("No valid email addresses to invite")
	}
	return invited, nil
}

// AttachUser adds an existing user to a tenant
func (s *TenantService) AttachUser(ctx context.Context, actorID, tenantID, userID string) error {
	if _, err := s.users.GetByID(ctx, userID, false); err != nil {
		return err
	}
	if err := s.tenants.AttachMember(ctx, tenantID, userID); err != nil {
		return err
	}
	s.audit.LogAction(ctx, tenantID, actorID, "member_attached", "user", userID, "ok")
	return nil
}

// DetachUser removes a user from a tenant
func (s *TenantService) DetachUser(ctx context.Context, actorID, tenantID, userID string) error {
	if err := s.tenants.DetachMember(ctx, tenantID, userID); err != nil {
		return err
	}
	s.audit.LogAction(ctx, tenantID, actorID, "member_detached", "user", userID, "ok")
	return nil
}

// invite creates a placeholder user in the tenant and mails a signup
// link carrying a short-lived invite token. An already registered email
// is rejected; an existing invite just gets the link re-sent.
func (s *TenantService) invite(ctx context.Context, tenantID, email string, role domain.Role, send func(ctx context.Context, to, url string) error) error {
	invitee, err := s.users.GetInviteByEmail(ctx, email)
	if err != nil {
		if _, lookupErr := s.users.GetByEmail(ctx, email, false); lookupErr == nil {
			return apperror.Validation("A user with this email already exists")
		}
		invitee = &domain.User{
			Email:    email,
			Role:     role,
			Active:   true,
			IsInvite: true,
			Tenants:  []string{tenantID},
		}
		if err := s.users.Create(ctx, invitee); err != nil {
			return err
		}
	} else if err := s.tenants.AttachMember(ctx, tenantID, invitee.ID); err != nil {
		return err
	}

	inviteToken, err := s.tokens.Issue(invitee.ID, tenantID, s.jwtCfg.InviteTTL)
	if err != nil {
		return apperror.Internal(err)
	}

	signupURL := fmt.Sprintf("%s/signup?token=%s&email=%s", s.baseURL, inviteToken, email)
	if err := send(ctx, email, signupURL); err != nil {
		return apperror.EmailDelivery(err)
	}
	return nil
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// generateSlug derives a short identifier from the tenant name and
// resolves collisions with a random suffix.
func (s *TenantService) generateSlug(ctx context.Context, name string) (string, error) {
	base := strings.Trim(slugInvalidChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if base == "" {
		base = "tenant"
	}

	slug := base
	for attempt := 0; attempt < 5; attempt++ {
		exists, err := s.tenants.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		suffix := make([]byte, 2)
		if _, err := rand.Read(suffix); err != nil {
			return "", apperror.Internal(err)
		}
		slug = base + "-" + hex.EncodeToString(suffix)
	}
	return "", apperror.Validation("Could not generate a unique tenant identifier")
}
