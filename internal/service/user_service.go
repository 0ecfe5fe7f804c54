package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/security"
	"github.com/cloudylake/tenantapi/internal/security/audit"
)

// UserService covers profile self-service and administrative user
// management. Administrative reads and writes are tenant-scoped: a user
// outside the acting tenant is reported as absent, not as forbidden.
type UserService struct {
	users  domain.UserRepository
	audit  *audit.Logger
	logger *slog.Logger
}

// NewUserService creates the user service
func NewUserService(users domain.UserRepository, auditLog *audit.Logger, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, audit: auditLog, logger: logger}
}

// UpdateMeInput carries the self-service profile fields
type UpdateMeInput struct {
	UserName        string `json:"userName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdateMe updates the calling user's own profile. Password fields are
// rejected here; credential changes go through their own endpoint.
func (s *UserService) UpdateMe(ctx context.Context, userID string, input UpdateMeInput) (*domain.User, error) {
	if input.Password != "" || input.PasswordConfirm != "" {
		return nil, apperror.Validation("This route is not for password updates. Please use /updateMyPassword.")
	}

	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.UserName); name != "" {
		user.UserName = name
	}
	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" {
		user.Email = email
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteMe soft-deletes the calling user. The record survives with
// active = false and disappears from every default lookup.
func (s *UserService) DeleteMe(ctx context.Context, userID string) error {
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return err
	}
	s.audit.LogAction(ctx, "", userID, "account_deactivated", "user", userID, "ok")
	return nil
}

// Get retrieves a user within the acting tenant. A user who exists but
// belongs to another tenant is indistinguishable from a missing one.
func (s *UserService) Get(ctx context.Context, actor *domain.User, tenantID, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if err := s.requireSameTenant(actor, user, tenantID); err != nil {
		return nil, err
	}
	return user, nil
}

// List lists users in the acting tenant. Super-admins with no tenant
// bound list across all tenants.
func (s *UserService) List(ctx context.Context, actor *domain.User, tenantID string, opts domain.ListOptions) ([]*domain.User, error) {
	if tenantID == "" && actor.Role != domain.RoleSuperAdmin {
		return nil, apperror.MissingTenant()
	}
	return s.users.ListByTenant(ctx, tenantID, opts)
}

// AdminUpdateInput carries the administrative user fields
type AdminUpdateInput struct {
	UserName string      `json:"userName"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
}

// Update applies an administrative update to a user in the acting
// tenant. Role changes are validated against the closed role set and an
// admin cannot grant a role above their own.
func (s *UserService) Update(ctx context.Context, actor *domain.User, tenantID, userID string, input AdminUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if err := s.requireSameTenant(actor, user, tenantID); err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.UserName); name != "" {
		user.UserName = name
	}
	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" {
		user.Email = email
	}
	if input.Role != "" {
		if !input.Role.Valid() {
			return nil, apperror.Validation("Invalid role")
		}
		if !security.HasAtLeast(actor.Role, input.Role) {
			return nil, apperror.Forbidden("You do not have permission to perform this action")
		}
		user.Role = input.Role
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, tenantID, actor.ID, "user_updated", "user", userID, "ok")
	return user, nil
}

// Delete hard-deletes a user in the acting tenant. Unlike the
// self-service soft delete, the record is removed for good and the
// repository detaches the user from its tenant member lists.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, tenantID, userID string) error {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		return err
	}
	if err := s.requireSameTenant(actor, user, tenantID); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.audit.LogAction(ctx, tenantID, actor.ID, "user_deleted", "user", userID, "ok")
	return nil
}

// requireSameTenant hides users outside the acting tenant behind a 404
func (s *UserService) requireSameTenant(actor *domain.User, target *domain.User, tenantID string) error {
	if actor != nil && actor.Role == domain.RoleSuperAdmin {
		return nil
	}
	for _, t := range target.Tenants {
		if t == tenantID && tenantID != "" {
			return nil
		}
	}
	return apperror.NotFound("User not found")
}
