package handler

import (
	"net/http"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
	"github.com/cloudylake/tenantapi/internal/service"
)

// TenantHandler exposes organization management endpoints
type TenantHandler struct {
	tenants *service.TenantService
	respond *respond.Responder
}

// NewTenantHandler creates the tenant handler
func NewTenantHandler(tenants *service.TenantService, responder *respond.Responder) *TenantHandler {
	return &TenantHandler{tenants: tenants, respond: responder}
}

// requireTenantAccess confirms the acting user may operate on the
// addressed tenant. Non-members see a 404 so tenant slugs cannot be
// probed.
func (h *TenantHandler) requireTenantAccess(r *http.Request, slug string) error {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		return apperror.Unauthorized("not logged in")
	}
	if err := security.ValidateTenantAccess(user, slug); err != nil {
		return apperror.NotFound("Tenant not found")
	}
	return nil
}

// Create handles POST /api/v1/tenants
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperror.Unauthorized("not logged in"))
		return
	}

	var input service.CreateTenantInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	tenant, err := h.tenants.Create(r.Context(), user.ID, input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusCreated, tenant)
}

// List handles GET /api/v1/tenants (super-admin only, enforced in routing)
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(tenants), tenants)
}

// Get handles GET /api/v1/tenants/{tenantId}
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("tenantId")
	if err := h.requireTenantAccess(r, slug); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	tenant, err := h.tenants.Get(r.Context(), slug)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, tenant)
}

// Update handles PATCH /api/v1/tenants/{tenantId}
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("tenantId")
	if err := h.requireTenantAccess(r, slug); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	var input service.UpdateTenantInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user := middleware.UserFromContext(r.Context())
	tenant, err := h.tenants.Update(r.Context(), user.ID, slug, input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, tenant)
}

// Delete handles DELETE /api/v1/tenants/{tenantId}
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperror.Unauthorized("not logged in"))
		return
	}

	if err := h.tenants.Delete(r.Context(), user.ID, r.PathValue("tenantId")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.NoContent(w)
}

// ListUsers handles GET /api/v1/tenants/{tenantId}/users
func (h *TenantHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("tenantId")
	if err := h.requireTenantAccess(r, slug); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	users, err := h.tenants.ListUsers(r.Context(), slug, ParseListOptions(r.URL.Query()))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(users), users)
}

// Invite handles POST /api/v1/tenants/{tenantId}/invite and
// POST /api/v1/users/invite, which falls back to the resolved tenant.
// Emails is a comma-separated list; each address gets its own invite
// and mail.
func (h *TenantHandler) Invite(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("tenantId")
	if slug == "" {
		slug = middleware.TenantFromContext(r.Context())
	}
	if err := h.requireTenantAccess(r, slug); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	var input struct {
		Emails string      `json:"emails"`
		Role   domain.Role `json:"role"`
	}
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user := middleware.UserFromContext(r.Context())
	invited, err := h.tenants.InviteUsers(r.Context(), user.ID, slug, input.Emails, input.Role)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(invited), invited)
}

// AttachUser handles POST /api/v1/tenants/{tenantId}/users/{id}
func (h *TenantHandler) AttachUser(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("tenantId")
	if err := h.requireTenantAccess(r, slug); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user := middleware.UserFromContext(r.Context())
	if err := h.tenants.AttachUser(r.Context(), user.ID, slug, r.PathValue("id")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.JSON(w, http.StatusOK, respond.Envelope{Message: "User added to tenant"})
}

// DetachUser handles DELETE /api/v1/tenants/{tenantId}/users/{id}
func (h *TenantHandler) DetachUser(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("tenantId")
	if err := h.requireTenantAccess(r, slug); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user := middleware.UserFromContext(r.Context())
	if err := h.tenants.DetachUser(r.Context(), user.ID, slug, r.PathValue("id")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.NoContent(w)
}
