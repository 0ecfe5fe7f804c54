package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
)

// ConfigHandler exposes tenant configuration entries addressed by key
type ConfigHandler struct {
	configs domain.ConfigRepository
	respond *respond.Responder
}

// NewConfigHandler creates the config handler
func NewConfigHandler(configs domain.ConfigRepository, responder *respond.Responder) *ConfigHandler {
	return &ConfigHandler{configs: configs, respond: responder}
}

// List handles GET /api/v1/configs
func (h *ConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	entries, err := h.configs.List(r.Context(), tenantID, ParseListOptions(r.URL.Query()))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(entries), entries)
}

// Get handles GET /api/v1/configs/{key}
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	entry, err := h.configs.GetByKey(r.Context(), tenantID, r.PathValue("key"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, entry)
}

// Create handles POST /api/v1/configs
func (h *ConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var input struct {
		Key   string          `json:"config_key"`
		Value json.RawMessage `json:"config_value"`
	}
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if input.Key == "" || len(input.Value) == 0 {
		h.respond.Error(w, r, apperror.Validation("A config entry must have a key and a value"))
		return
	}

	entry := &domain.ConfigEntry{TenantID: tenantID, Key: input.Key, Value: input.Value}
	if err := h.configs.Create(r.Context(), entry); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusCreated, entry)
}

// Update handles PATCH /api/v1/configs/{key}
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var input struct {
		Value json.RawMessage `json:"config_value"`
	}
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if len(input.Value) == 0 {
		h.respond.Error(w, r, apperror.Validation("A config entry must have a value"))
		return
	}

	entry, err := h.configs.UpdateByKey(r.Context(), tenantID, r.PathValue("key"), input.Value)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/v1/configs/{key}
func (h *ConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	if err := h.configs.DeleteByKey(r.Context(), tenantID, r.PathValue("key")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.NoContent(w)
}
