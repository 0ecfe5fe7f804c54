package handler

import (
	"net/http"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
)

// CategoryHandler exposes tenant-scoped category endpoints
type CategoryHandler struct {
	categories domain.CategoryRepository
	respond    *respond.Responder
}

// NewCategoryHandler creates the category handler
func NewCategoryHandler(categories domain.CategoryRepository, responder *respond.Responder) *CategoryHandler {
	return &CategoryHandler{categories: categories, respond: responder}
}

type categoryInput struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Icon  string `json:"icon"`
}

// List handles GET /api/v1/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	categories, err := h.categories.List(r.Context(), tenantID, ParseListOptions(r.URL.Query()))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(categories), categories)
}

// Get handles GET /api/v1/categories/{id}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	category, err := h.categories.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, category)
}

// Create handles POST /api/v1/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var input categoryInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if input.Title == "" || input.Slug == "" {
		h.respond.Error(w, r, apperror.Validation("A category must have a title and a slug"))
		return
	}

	category := &domain.Category{
		TenantID: tenantID,
		Title:    input.Title,
		Slug:     input.Slug,
		Icon:     input.Icon,
	}
	if err := h.categories.Create(r.Context(), category); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusCreated, category)
}

// Update handles PATCH /api/v1/categories/{id}
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	category, err := h.categories.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	var input categoryInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if input.Title != "" {
		category.Title = input.Title
	}
	if input.Slug != "" {
		category.Slug = input.Slug
	}
	if input.Icon != "" {
		category.Icon = input.Icon
	}

	if err := h.categories.Update(r.Context(), category); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, category)
}

// Delete handles DELETE /api/v1/categories/{id}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	if err := h.categories.Delete(r.Context(), tenantID, r.PathValue("id")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.NoContent(w)
}

// UpdateOrder handles PUT /api/v1/categories/order
func (h *CategoryHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var order []domain.OrderUpdate
	if err := decodeJSON(r, &order); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if err := h.categories.UpdateOrder(r.Context(), tenantID, order); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	categories, err := h.categories.List(r.Context(), tenantID, domain.ListOptions{Limit: 100})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(categories), categories)
}
