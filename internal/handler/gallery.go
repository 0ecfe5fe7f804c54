package handler

import (
	"net/http"

	"github.com/cloudylake/tenantapi/internal/domain"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
	"github.com/cloudylake/tenantapi/internal/storage"
)

// GalleryHandler exposes tenant-scoped gallery endpoints. Photos are
// uploaded as multipart form data and served back by generated name.
type GalleryHandler struct {
	gallery domain.GalleryRepository
	images  storage.ImageStore
	respond *respond.Responder
}

// NewGalleryHandler creates the gallery handler
func NewGalleryHandler(gallery domain.GalleryRepository, images storage.ImageStore, responder *respond.Responder) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, images: images, respond: responder}
}

// List handles GET /api/v1/gallery
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	photos, err := h.gallery.ListPhotos(r.Context(), tenantID, ParseListOptions(r.URL.Query()))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(photos), photos)
}

// Get handles GET /api/v1/gallery/{id}
func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	photo, err := h.gallery.GetPhoto(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusOK, photo)
}

// Upload handles POST /api/v1/gallery with a multipart image
func (h *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	name, err := saveUploadedImage(r, h.images, tenantID)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	photo := &domain.Photo{TenantID: tenantID, ImageName: name}
	if err := h.gallery.AddPhoto(r.Context(), photo); err != nil {
		_ = h.images.Remove(tenantID, name)
		h.respond.Error(w, r, err)
		return
	}
	h.respond.Success(w, http.StatusCreated, photo)
}

// Delete handles DELETE /api/v1/gallery/{id}, removing both the record
// and the stored file
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	photo, err := h.gallery.GetPhoto(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if err := h.gallery.DeletePhoto(r.Context(), tenantID, photo.ID); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	_ = h.images.Remove(tenantID, photo.ImageName)
	h.respond.NoContent(w)
}

// UpdateOrder handles PUT /api/v1/gallery/order
func (h *GalleryHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var order []domain.OrderUpdate
	if err := decodeJSON(r, &order); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if err := h.gallery.UpdateOrder(r.Context(), tenantID, order); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	photos, err := h.gallery.ListPhotos(r.Context(), tenantID, domain.ListOptions{Limit: 100})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.List(w, len(photos), photos)
}
