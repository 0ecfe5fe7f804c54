package handler

import (
	"net/http"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
	"github.com/cloudylake/tenantapi/internal/service"
)

// UserHandler exposes profile self-service and administrative user
// management
type UserHandler struct {
	users   *service.UserService
	respond *respond.Responder
}

// NewUserHandler creates the user handler
func NewUserHandler(users *service.UserService, responder *respond.Responder) *UserHandler {
	return &UserHandler{users: users, respond: responder}
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperror.Unauthorized("not logged in"))
		return
	}
	h.respond.Success(w, http.StatusOK, user)
}

// UpdateMe handles PATCH /api/v1/users/updateMe
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperror.Unauthorized("not logged in"))
		return
	}

	var input service.UpdateMeInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	updated, err := h.users.UpdateMe(r.Context(), user.ID, input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, updated)
}

// DeleteMe handles DELETE /api/v1/users/deleteMe
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperror.Unauthorized("not logged in"))
		return
	}

	if err := h.users.DeleteMe(r.Context(), user.ID); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.NoContent(w)
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())
	tenantID := middleware.TenantFromContext(r.Context())

	users, err := h.users.List(r.Context(), actor, tenantID, ParseListOptions(r.URL.Query()))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(users), SelectFields(users, r.URL.Query().Get("fields")))
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())
	tenantID := middleware.TenantFromContext(r.Context())

	user, err := h.users.Get(r.Context(), actor, tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, user)
}

// Update handles PATCH /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())
	tenantID := middleware.TenantFromContext(r.Context())

	var input service.AdminUpdateInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), actor, tenantID, r.PathValue("id"), input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())
	tenantID := middleware.TenantFromContext(r.Context())

	if err := h.users.Delete(r.Context(), actor, tenantID, r.PathValue("id")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.NoContent(w)
}
