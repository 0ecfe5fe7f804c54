package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/security/audit"
	"github.com/cloudylake/tenantapi/pkg/config"
)

type memUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(ctx context.Context, u *domain.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperror.Validation("A user with this email already exists")
		}
	}
	m.nextID++
	u.ID = fmt.Sprintf("u%d", m.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id string, includeInactive bool) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok || (!u.Active && !includeInactive) {
		return nil, apperror.NotFound("User not found")
	}
	return u, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string, includeInactive bool) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) && (u.Active || includeInactive) {
			return u, nil
		}
	}
	return nil, apperror.NotFound("User not found")
}

func (m *memUserRepo) GetInviteByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) && u.IsInvite && u.Active {
			return u, nil
		}
	}
	return nil, apperror.NotFound("Invite not found")
}

func (m *memUserRepo) GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	for _, u := range m.users {
		if u.Active && u.PasswordResetTokenHash == hash &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return u, nil
		}
	}
	return nil, apperror.Validation("Token is invalid or has expired")
}

func (m *memUserRepo) Update(ctx context.Context, u *domain.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return apperror.NotFound("User not found")
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("User not found")
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	u.PasswordResetTokenHash = ""
	u.PasswordResetExpires = nil
	return nil
}

func (m *memUserRepo) SetResetToken(ctx context.Context, id, hash string, expires time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("User not found")
	}
	u.PasswordResetTokenHash = hash
	u.PasswordResetExpires = &expires
	return nil
}

func (m *memUserRepo) ClearResetToken(ctx context.Context, id string) error {
	if u, ok := m.users[id]; ok {
		u.PasswordResetTokenHash = ""
		u.PasswordResetExpires = nil
	}
	return nil
}

func (m *memUserRepo) Deactivate(ctx context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("User not found")
	}
	u.Active = false
	return nil
}

func (m *memUserRepo) Delete(ctx context.Context, id string) error {
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) ListByTenant(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range m.users {
		if !u.Active {
			continue
		}
		if tenantID == "" {
			out = append(out, u)
			continue
		}
		for _, t := range u.Tenants {
			if t == tenantID {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

type memTenantRepo struct {
	tenants map[string]*domain.Tenant
	nextID  int
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: map[string]*domain.Tenant{}}
}

func (m *memTenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	if _, ok := m.tenants[t.Slug]; ok {
		return apperror.Validation("A tenant with this name or domain already exists")
	}
	m.nextID++
	t.ID = fmt.Sprintf("t%d", m.nextID)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.tenants[t.Slug] = t
	return nil
}

func (m *memTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	for _, t := range m.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperror.NotFound("Tenant not found")
}

func (m *memTenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	t, ok := m.tenants[slug]
	if !ok {
		return nil, apperror.NotFound("Tenant not found")
	}
	return t, nil
}

func (m *memTenantRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, ok := m.tenants[slug]
	return ok, nil
}

func (m *memTenantRepo) Update(ctx context.Context, t *domain.Tenant) error {
	m.tenants[t.Slug] = t
	return nil
}

func (m *memTenantRepo) Delete(ctx context.Context, id string) error {
	for slug, t := range m.tenants {
		if t.ID == id {
			delete(m.tenants, slug)
			return nil
		}
	}
	return apperror.NotFound("Tenant not found")
}

func (m *memTenantRepo) List(ctx context.Context) ([]*domain.Tenant, error) {
	var out []*domain.Tenant
	for _, t := range m.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (m *memTenantRepo) AttachMember(ctx context.Context, tenantID, userID string) error {
	t, ok := m.tenants[tenantID]
	if !ok {
		return apperror.NotFound("Tenant not found")
	}
	t.Members = append(t.Members, userID)
	return nil
}

func (m *memTenantRepo) DetachMember(ctx context.Context, tenantID, userID string) error {
	t, ok := m.tenants[tenantID]
	if !ok {
		return apperror.NotFound("Tenant not found")
	}
	for i, id := range t.Members {
		if id == userID {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("Membership not found")
}

// fakeMailer records sent mail and can be told to fail
type fakeMailer struct {
	fail     bool
	welcomes []string
	resets   []string
	invites  []string
}

func (f *fakeMailer) maybeFail() error {
	if f.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (f *fakeMailer) SendWelcome(ctx context.Context, to, name string) error {
	if err := f.maybeFail(); err != nil {
		return err
	}
	f.welcomes = append(f.welcomes, to)
	return nil
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, to, name, url string) error {
	if err := f.maybeFail(); err != nil {
		return err
	}
	f.resets = append(f.resets, url)
	return nil
}

func (f *fakeMailer) SendTenantInvite(ctx context.Context, to, url string) error {
	if err := f.maybeFail(); err != nil {
		return err
	}
	f.invites = append(f.invites, to)
	return nil
}

func (f *fakeMailer) SendUserInvite(ctx context.Context, to, url string) error {
	if err := f.maybeFail(); err != nil {
		return err
	}
	f.invites = append(f.invites, to)
	return nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{
		PublicURL: "http://localhost:8080",
		JWT: config.JWTConfig{
			Secret:        "test-secret",
			Issuer:        "test",
			SessionTTL:    time.Hour,
			InviteTTL:     24 * time.Hour,
			ResetTokenTTL: 10 * time.Minute,
		},
		BcryptCost: 4,
	}
}

func testAudit() *audit.Logger {
	return audit.NewLogger(testLogger())
}
