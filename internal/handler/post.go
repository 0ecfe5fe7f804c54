package handler

import (
	"net/http"
	"time"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
	"github.com/cloudylake/tenantapi/internal/storage"
)

// PostHandler exposes tenant-scoped post endpoints. Reads are public
// within a resolved tenant; writes run behind authentication and the
// editor minimum, enforced in routing.
type PostHandler struct {
	posts   domain.PostRepository
	images  storage.ImageStore
	respond *respond.Responder
}

// NewPostHandler creates the post handler
func NewPostHandler(posts domain.PostRepository, images storage.ImageStore, responder *respond.Responder) *PostHandler {
	return &PostHandler{posts: posts, images: images, respond: responder}
}

type postInput struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Image       string `json:"image"`
}

func (in postInput) date() (time.Time, error) {
	if in.Date == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, in.Date); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return time.Time{}, apperror.Validation("Invalid date format")
	}
	return t, nil
}

// List handles GET /api/v1/posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	posts, err := h.posts.List(r.Context(), tenantID, ParseListOptions(r.URL.Query()))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(posts), SelectFields(posts, r.URL.Query().Get("fields")))
}

// Get handles GET /api/v1/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	post, err := h.posts.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, post)
}

// Create handles POST /api/v1/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var input postInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if input.Title == "" || input.Slug == "" {
		h.respond.Error(w, r, apperror.Validation("A post must have a title and a slug"))
		return
	}
	date, err := input.date()
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	post := &domain.Post{
		TenantID:    tenantID,
		Title:       input.Title,
		Slug:        input.Slug,
		Description: input.Description,
		Date:        date,
		Image:       input.Image,
	}
	if err := h.posts.Create(r.Context(), post); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusCreated, post)
}

// Update handles PATCH /api/v1/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	post, err := h.posts.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	var input postInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if input.Title != "" {
		post.Title = input.Title
	}
	if input.Slug != "" {
		post.Slug = input.Slug
	}
	if input.Description != "" {
		post.Description = input.Description
	}
	if input.Image != "" {
		post.Image = input.Image
	}
	if input.Date != "" {
		date, err := input.date()
		if err != nil {
			h.respond.Error(w, r, err)
			return
		}
		post.Date = date
	}

	if err := h.posts.Update(r.Context(), post); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, post)
}

// Delete handles DELETE /api/v1/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	if err := h.posts.Delete(r.Context(), tenantID, r.PathValue("id")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.NoContent(w)
}

// UploadImage handles POST /api/v1/posts/{id}/image
func (h *PostHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	post, err := h.posts.GetByID(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	name, err := saveUploadedImage(r, h.images, tenantID)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if post.Image != "" {
		_ = h.images.Remove(tenantID, post.Image)
	}

	post.Image = name
	if err := h.posts.Update(r.Context(), post); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, post)
}
