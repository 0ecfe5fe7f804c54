package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/auth"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error { return nil }

func (f *fakeUserRepo) GetByID(ctx context.Context, id string, includeInactive bool) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok || (!u.Active && !includeInactive) {
		return nil, apperror.NotFound("User not found")
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string, includeInactive bool) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email && (u.Active || includeInactive) {
			return u, nil
		}
	}
	return nil, apperror.NotFound("User not found")
}

func (f *fakeUserRepo) GetInviteByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, apperror.NotFound("Invite not found")
}

func (f *fakeUserRepo) GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	return nil, apperror.Validation("Token is invalid or has expired")
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domain.User) error { return nil }
func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	return nil
}
func (f *fakeUserRepo) SetResetToken(ctx context.Context, id, hash string, expires time.Time) error {
	return nil
}
func (f *fakeUserRepo) ClearResetToken(ctx context.Context, id string) error { return nil }
func (f *fakeUserRepo) Deactivate(ctx context.Context, id string) error      { return nil }
func (f *fakeUserRepo) Delete(ctx context.Context, id string) error          { return nil }
func (f *fakeUserRepo) ListByTenant(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.User, error) {
	return nil, nil
}

func newTestAuth(users map[string]*domain.User) (*Auth, *auth.TokenManager) {
	logger := slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens := auth.NewTokenManager("test-secret", "test")
	responder := respond.New(logger, false)
	return NewAuth(&fakeUserRepo{users: users}, tokens, responder, logger), tokens
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func capturingHandler(tenant *string, user **domain.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenant != nil {
			*tenant = TenantFromContext(r.Context())
		}
		if user != nil {
			*user = UserFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestResolveTenantFromToken(t *testing.T) {
	a, tokens := newTestAuth(nil)
	token, _ := tokens.Issue("u1", "acme", time.Hour)

	var got string
	h := a.ResolveTenant(true)(capturingHandler(&got, nil))

	// The token tenant wins over body, query, and path.
	req := httptest.NewRequest(http.MethodPost, "/x?tenantId=query-t", strings.NewReader(`{"tenantId":"body-t"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got != "acme" {
		t.Errorf("tenant = %q, want acme", got)
	}
}

func TestResolveTenantFromBodyThenQuery(t *testing.T) {
	a, _ := newTestAuth(nil)

	var got string
	h := a.ResolveTenant(true)(capturingHandler(&got, nil))

	req := httptest.NewRequest(http.MethodPost, "/x?tenantId=query-t", strings.NewReader(`{"tenantId":"body-t"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got != "body-t" {
		t.Errorf("tenant = %q, want body-t", got)
	}

	got = ""
	req = httptest.NewRequest(http.MethodGet, "/x?tenantId=query-t", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got != "query-t" {
		t.Errorf("tenant = %q, want query-t", got)
	}
}

func TestResolveTenantBodyRestored(t *testing.T) {
	a, _ := newTestAuth(nil)

	var body map[string]string
	h := a.ResolveTenant(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("downstream decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"tenantId":"acme","name":"n"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if body["name"] != "n" {
		t.Errorf("downstream body lost: %v", body)
	}
}

func TestResolveTenantInvalidTokenIs401(t *testing.T) {
	a, _ := newTestAuth(nil)
	h := a.ResolveTenant(true)(capturingHandler(nil, nil))

	// A present-but-invalid token must never fall back silently.
	req := httptest.NewRequest(http.MethodGet, "/x?tenantId=acme", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestResolveTenantRequiredMissingIs400(t *testing.T) {
	a, _ := newTestAuth(nil)
	h := a.ResolveTenant(true)(capturingHandler(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestResolveTenantOptionalMissingProceeds(t *testing.T) {
	a, _ := newTestAuth(nil)
	var got string
	h := a.ResolveTenant(false)(capturingHandler(&got, nil))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got != "" {
		t.Errorf("tenant = %q, want empty", got)
	}
}

func TestProtect(t *testing.T) {
	changedAt := time.Now().Add(time.Hour)
	users := map[string]*domain.User{
		"u1": {ID: "u1", Email: "a@b.c", Role: domain.RoleUser, Active: true, Tenants: []string{"acme"}},
		"u2": {ID: "u2", Email: "d@e.f", Role: domain.RoleUser, Active: true, PasswordChangedAt: &changedAt},
		"u3": {ID: "u3", Email: "g@h.i", Role: domain.RoleUser, Active: false},
	}
	a, tokens := newTestAuth(users)

	var gotUser *domain.User
	var gotTenant string
	h := a.Protect(capturingHandler(&gotTenant, &gotUser))

	run := func(authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := run(""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", rec.Code)
	}
	if rec := run("Bearer bogus"); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	unknown, _ := tokens.Issue("nope", "acme", time.Hour)
	if rec := run("Bearer " + unknown); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: status = %d, want 401", rec.Code)
	}

	inactive, _ := tokens.Issue("u3", "acme", time.Hour)
	if rec := run("Bearer " + inactive); rec.Code != http.StatusUnauthorized {
		t.Errorf("inactive user: status = %d, want 401", rec.Code)
	}

	stale, _ := tokens.Issue("u2", "acme", time.Hour)
	if rec := run("Bearer " + stale); rec.Code != http.StatusUnauthorized {
		t.Errorf("stale token: status = %d, want 401", rec.Code)
	}

	valid, _ := tokens.Issue("u1", "acme", time.Hour)
	if rec := run("Bearer " + valid); rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
	if gotUser == nil || gotUser.ID != "u1" {
		t.Errorf("context user = %+v", gotUser)
	}
	if gotTenant != "acme" {
		t.Errorf("context tenant = %q, want acme", gotTenant)
	}
}

func TestRequireTenantMember(t *testing.T) {
	users := map[string]*domain.User{
		"editor": {ID: "editor", Role: domain.RoleEditor, Active: true, Tenants: []string{"acme"}},
		"root":   {ID: "root", Role: domain.RoleSuperAdmin, Active: true},
	}
	a, tokens := newTestAuth(users)

	h := Chain(capturingHandler(nil, nil), a.Protect, a.ResolveTenant(true), a.RequireTenantMember, a.RequireRole(domain.RoleEditor))

	run := func(userID, tokenTenant, queryTenant string) int {
		token, _ := tokens.Issue(userID, tokenTenant, time.Hour)
		req := httptest.NewRequest(http.MethodPost, "/x?tenantId="+queryTenant, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// A token without a tenant binding cannot pick a foreign tenant
	// through the query fallback.
	if code := run("editor", "", "globex"); code != http.StatusForbidden {
		t.Errorf("foreign tenant via fallback: status = %d, want 403", code)
	}
	if code := run("editor", "", "acme"); code != http.StatusOK {
		t.Errorf("own tenant via fallback: status = %d, want 200", code)
	}
	if code := run("editor", "acme", ""); code != http.StatusOK {
		t.Errorf("bound token: status = %d, want 200", code)
	}
	if code := run("root", "", "globex"); code != http.StatusOK {
		t.Errorf("super-admin: status = %d, want 200", code)
	}
}

func TestRequireRole(t *testing.T) {
	users := map[string]*domain.User{
		"editor": {ID: "editor", Role: domain.RoleEditor, Active: true},
		"admin":  {ID: "admin", Role: domain.RoleAdmin, Active: true},
	}
	a, tokens := newTestAuth(users)

	h := Chain(capturingHandler(nil, nil), a.Protect, a.RequireRole(domain.RoleAdmin))

	run := func(userID string) int {
		token, _ := tokens.Issue(userID, "acme", time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := run("editor"); code != http.StatusForbidden {
		t.Errorf("editor: status = %d, want 403", code)
	}
	if code := run("admin"); code != http.StatusOK {
		t.Errorf("admin: status = %d, want 200", code)
	}
}
