package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cloudylake/tenantapi/internal/apperror"
)

// ImageStore persists uploaded images and serves them back by name.
// Names are generated server-side; client-supplied filenames never
// touch the filesystem.
type ImageStore interface {
	Save(tenantID string, header *multipart.FileHeader) (string, error)
	Open(tenantID, name string) (io.ReadCloser, error)
	Remove(tenantID, name string) error
}

// DiskImageStore stores images under a per-tenant directory
type DiskImageStore struct {
	root string
}

// NewDiskImageStore creates the store root if missing
func NewDiskImageStore(root string) (*DiskImageStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskImageStore{root: root}, nil
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// tenantSlugPattern matches the alphabet tenant slugs are generated
// from. The tenant id reaches this store from request input, so
// anything outside the slug alphabet must never touch the filesystem.
var tenantSlugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

func validTenantDir(tenantID string) bool {
	return tenantSlugPattern.MatchString(tenantID)
}

// Save writes an uploaded image and returns its generated name
func (s *DiskImageStore) Save(tenantID string, header *multipart.FileHeader) (string, error) {
	if !validTenantDir(tenantID) {
		return "", apperror.Validation("Invalid tenant identifier")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		return "", apperror.Validation("Not an image! Please upload only images.")
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + ext
	dir := filepath.Join(s.root, tenantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create tenant dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return name, nil
}

// Open returns the image content, or not-found for unknown names.
// The tenant id must match the slug alphabet and the name is reduced to
// its base, so neither component can traverse out of the store root.
func (s *DiskImageStore) Open(tenantID, name string) (io.ReadCloser, error) {
	if !validTenantDir(tenantID) {
		return nil, apperror.NotFound("Image not found")
	}
	f, err := os.Open(filepath.Join(s.root, tenantID, filepath.Base(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperror.NotFound("Image not found")
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return f, nil
}

// Remove deletes an image; a missing file is not an error
func (s *DiskImageStore) Remove(tenantID, name string) error {
	if !validTenantDir(tenantID) {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, tenantID, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
