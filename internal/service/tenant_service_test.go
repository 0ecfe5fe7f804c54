package service

import (
	"context"
	"testing"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/security/auth"
)

func newTenantService(tenants *memTenantRepo, users *memUserRepo, mailer *fakeMailer) *TenantService {
	cfg := testConfig()
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)
	return NewTenantService(tenants, users, tokens, mailer, testAudit(), cfg, testLogger())
}

func TestCreateTenantGeneratesSlug(t *testing.T) {
	tenants := newMemTenantRepo()
	svc := newTenantService(tenants, newMemUserRepo(), &fakeMailer{})

	tenant, err := svc.Create(context.Background(), "actor", CreateTenantInput{Name: "Acme Photo Studio!"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tenant.Slug != "acme-photo-studio" {
		t.Errorf("slug = %q, want acme-photo-studio", tenant.Slug)
	}

	// Same name again gets a suffixed slug, not a failure.
	second, err := svc.Create(context.Background(), "actor", CreateTenantInput{Name: "Acme Photo Studio!"})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if second.Slug == tenant.Slug {
		t.Errorf("slug collision not resolved: %q", second.Slug)
	}
}

func TestCreateTenantRequiresName(t *testing.T) {
	svc := newTenantService(newMemTenantRepo(), newMemUserRepo(), &fakeMailer{})
	_, err := svc.Create(context.Background(), "actor", CreateTenantInput{Name: "  "})
	if apperror.From(err).Kind != apperror.KindValidation {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestCreateTenantWithManagerInvite(t *testing.T) {
	tenants := newMemTenantRepo()
	users := newMemUserRepo()
	mailer := &fakeMailer{}
	svc := newTenantService(tenants, users, mailer)

	tenant, err := svc.Create(context.Background(), "actor", CreateTenantInput{
		Name:         "Globex",
		ManagerEmail: "boss@globex.com",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(mailer.invites) != 1 || mailer.invites[0] != "boss@globex.com" {
		t.Fatalf("invites = %v", mailer.invites)
	}

	invitee, err := users.GetInviteByEmail(context.Background(), "boss@globex.com")
	if err != nil {
		t.Fatalf("invite record missing: %v", err)
	}
	if invitee.Role != domain.RoleManager {
		t.Errorf("role = %q, want manager", invitee.Role)
	}
	if invitee.PrimaryTenant() != tenant.Slug {
		t.Errorf("tenants = %v, want %q", invitee.Tenants, tenant.Slug)
	}
}

func TestInviteUsersCommaSeparated(t *testing.T) {
	tenants := newMemTenantRepo()
	users := newMemUserRepo()
	mailer := &fakeMailer{}
	svc := newTenantService(tenants, users, mailer)

	if _, err := svc.Create(context.Background(), "actor", CreateTenantInput{Name: "Acme"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	invited, err := svc.InviteUsers(context.Background(), "actor", "acme", " a@x.com, B@x.com ,, ", domain.RoleEditor)
	if err != nil {
		t.Fatalf("InviteUsers: %v", err)
	}
	if len(invited) != 2 {
		t.Fatalf("invited = %v, want 2 entries", invited)
	}
	if invited[1] != "b@x.com" {
		t.Errorf("emails not normalized: %v", invited)
	}
	if len(mailer.invites) != 2 {
		t.Errorf("mails = %d, want 2", len(mailer.invites))
	}
}

func TestInviteUsersRejectsAdminRole(t *testing.T) {
	svc := newTenantService(newMemTenantRepo(), newMemUserRepo(), &fakeMailer{})

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin} {
		if _, err := svc.InviteUsers(context.Background(), "actor", "acme", "a@x.com", role); err == nil {
			t.Errorf("role %s accepted via invite", role)
		}
	}
	if _, err := svc.InviteUsers(context.Background(), "actor", "acme", "a@x.com", "owner"); err == nil {
		t.Error("unknown role accepted")
	}
}

func TestInviteExistingUserRejected(t *testing.T) {
	tenants := newMemTenantRepo()
	users := newMemUserRepo()
	svc := newTenantService(tenants, users, &fakeMailer{})

	if _, err := svc.Create(context.Background(), "actor", CreateTenantInput{Name: "Acme"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	seedUser(t, users, "taken@x.com", "secret123", domain.RoleUser, "acme")

	if _, err := svc.InviteUsers(context.Background(), "actor", "acme", "taken@x.com", domain.RoleUser); err == nil {
		t.Error("registered email accepted as invite")
	}
}

func TestDeleteTenant(t *testing.T) {
	tenants := newMemTenantRepo()
	svc := newTenantService(tenants, newMemUserRepo(), &fakeMailer{})

	tenant, err := svc.Create(context.Background(), "actor", CreateTenantInput{Name: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(context.Background(), "actor", tenant.Slug); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), tenant.Slug); err == nil {
		t.Error("tenant still present after delete")
	}
	if err := svc.Delete(context.Background(), "actor", "nope"); apperror.From(err).Kind != apperror.KindNotFound {
		t.Errorf("missing tenant delete: err = %v", err)
	}
}
