package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
	"github.com/cloudylake/tenantapi/internal/storage"
)

// saveUploadedImage reads the "image" part of a multipart form and
// stores it for the tenant, returning the generated name
func saveUploadedImage(r *http.Request, images storage.ImageStore, tenantID string) (string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", apperror.Validation("Invalid multipart form")
	}
	_, header, err := r.FormFile("image")
	if err != nil {
		return "", apperror.Validation("An image file is required")
	}
	return images.Save(tenantID, header)
}

// ImageHandler serves stored images back within the resolved tenant
type ImageHandler struct {
	images  storage.ImageStore
	respond *respond.Responder
}

// NewImageHandler creates the image handler
func NewImageHandler(images storage.ImageStore, responder *respond.Responder) *ImageHandler {
	return &ImageHandler{images: images, respond: responder}
}

// Serve handles GET /api/v1/images/{name}
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	name := r.PathValue("name")

	f, err := h.images.Open(tenantID, name)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	defer f.Close()

	if ctype := mime.TypeByExtension(filepath.Ext(name)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, f); err != nil {
		return
	}
}
