package service

import (
	"context"
	"testing"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
)

func newUserService(users *memUserRepo) *UserService {
	return NewUserService(users, testAudit(), testLogger())
}

func TestUpdateMeRejectsPasswordFields(t *testing.T) {
	users := newMemUserRepo()
	svc := newUserService(users)
	u := seedUser(t, users, "ada@example.com", "secret123", domain.RoleUser, "acme")

	_, err := svc.UpdateMe(context.Background(), u.ID, UpdateMeInput{Password: "sneaky"})
	if err == nil || err.Error() != "This route is not for password updates. Please use /updateMyPassword." {
		t.Fatalf("err = %v", err)
	}

	updated, err := svc.UpdateMe(context.Background(), u.ID, UpdateMeInput{UserName: "Ada Lovelace"})
	if err != nil {
		t.Fatalf("UpdateMe: %v", err)
	}
	if updated.UserName != "Ada Lovelace" {
		t.Errorf("name = %q", updated.UserName)
	}
}

func TestDeleteMeSoftDeletes(t *testing.T) {
	users := newMemUserRepo()
	svc := newUserService(users)
	u := seedUser(t, users, "ada@example.com", "secret123", domain.RoleUser, "acme")

	if err := svc.DeleteMe(context.Background(), u.ID); err != nil {
		t.Fatalf("DeleteMe: %v", err)
	}

	// Gone from default lookups, still present for the admin bypass.
	if _, err := users.GetByID(context.Background(), u.ID, false); err == nil {
		t.Error("deactivated user still visible")
	}
	if _, err := users.GetByID(context.Background(), u.ID, true); err != nil {
		t.Errorf("record destroyed instead of deactivated: %v", err)
	}
}

func TestAdminDeleteRemovesRecord(t *testing.T) {
	users := newMemUserRepo()
	svc := newUserService(users)

	admin := seedUser(t, users, "admin@acme.com", "secret123", domain.RoleAdmin, "acme")
	target := seedUser(t, users, "user@acme.com", "secret123", domain.RoleUser, "acme")

	if err := svc.Delete(context.Background(), admin, "acme", target.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Unlike the self-service soft delete, no record survives the
	// admin path, not even behind the inactive bypass.
	if _, err := users.GetByID(context.Background(), target.ID, true); apperror.From(err).Kind != apperror.KindNotFound {
		t.Errorf("record survived admin delete: err = %v, want not found", err)
	}
}

func TestCrossTenantUserLookupIsNotFound(t *testing.T) {
	users := newMemUserRepo()
	svc := newUserService(users)

	admin := seedUser(t, users, "admin@acme.com", "secret123", domain.RoleAdmin, "acme")
	outsider := seedUser(t, users, "user@globex.com", "secret123", domain.RoleUser, "globex")

	_, err := svc.Get(context.Background(), admin, "acme", outsider.ID)
	if apperror.From(err).Kind != apperror.KindNotFound {
		t.Errorf("cross-tenant get: err = %v, want not found", err)
	}
	if err := svc.Delete(context.Background(), admin, "acme", outsider.ID); apperror.From(err).Kind != apperror.KindNotFound {
		t.Errorf("cross-tenant delete: err = %v, want not found", err)
	}

	super := seedUser(t, users, "root@cloudylake.io", "secret123", domain.RoleSuperAdmin)
	if _, err := svc.Get(context.Background(), super, "acme", outsider.ID); err != nil {
		t.Errorf("super-admin get: %v", err)
	}
}

func TestAdminUpdateRoleCeiling(t *testing.T) {
	users := newMemUserRepo()
	svc := newUserService(users)

	admin := seedUser(t, users, "admin@acme.com", "secret123", domain.RoleAdmin, "acme")
	target := seedUser(t, users, "user@acme.com", "secret123", domain.RoleUser, "acme")

	_, err := svc.Update(context.Background(), admin, "acme", target.ID, AdminUpdateInput{Role: domain.RoleSuperAdmin})
	if apperror.From(err).Kind != apperror.KindForbidden {
		t.Fatalf("escalation above own role: err = %v, want forbidden", err)
	}

	_, err = svc.Update(context.Background(), admin, "acme", target.ID, AdminUpdateInput{Role: "owner"})
	if apperror.From(err).Kind != apperror.KindValidation {
		t.Fatalf("unknown role: err = %v, want validation", err)
	}

	updated, err := svc.Update(context.Background(), admin, "acme", target.ID, AdminUpdateInput{Role: domain.RoleEditor})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Role != domain.RoleEditor {
		t.Errorf("role = %q, want editor", updated.Role)
	}
}

func TestListRequiresTenantForNonSuperAdmin(t *testing.T) {
	users := newMemUserRepo()
	svc := newUserService(users)

	admin := seedUser(t, users, "admin@acme.com", "secret123", domain.RoleAdmin, "acme")
	_, err := svc.List(context.Background(), admin, "", domain.ListOptions{})
	if apperror.From(err).Kind != apperror.KindMissingTenant {
		t.Errorf("err = %v, want missing tenant", err)
	}

	super := seedUser(t, users, "root@cloudylake.io", "secret123", domain.RoleSuperAdmin)
	if _, err := svc.List(context.Background(), super, "", domain.ListOptions{}); err != nil {
		t.Errorf("super-admin global list: %v", err)
	}
}
