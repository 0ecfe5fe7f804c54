package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
)

// PostgresGalleryRepository implements domain.GalleryRepository using PostgreSQL
type PostgresGalleryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresGalleryRepository creates a new gallery repository
func NewPostgresGalleryRepository(db *sql.DB, logger *slog.Logger) *PostgresGalleryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGalleryRepository{db: db, logger: logger}
}

func scanPhoto(row interface{ Scan(...interface{}) error }) (*domain.Photo, error) {
	photo := &domain.Photo{}
	err := row.Scan(&photo.ID, &photo.TenantID, &photo.Order, &photo.ImageName)
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// AddPhoto inserts a photo at the end of the tenant's gallery
func (r *PostgresGalleryRepository) AddPhoto(ctx context.Context, photo *domain.Photo) error {
	query := `
		INSERT INTO gallery_photos (tenant_id, sort_order, image_name)
		VALUES (
			$1,
			COALESCE((SELECT MAX(sort_order) + 1 FROM gallery_photos WHERE tenant_id = $1), 0),
			$2
		)
		RETURNING id, sort_order
	`
	err := r.db.QueryRowContext(ctx, query, photo.TenantID, photo.ImageName).Scan(&photo.ID, &photo.Order)
	if err != nil {
		return fmt.Errorf("failed to add photo: %w", err)
	}
	return nil
}

// GetPhoto retrieves a photo within a tenant
func (r *PostgresGalleryRepository) GetPhoto(ctx context.Context, tenantID, id string) (*domain.Photo, error) {
	query := `
		SELECT id, tenant_id, sort_order, image_name
		FROM gallery_photos
		WHERE tenant_id = $1 AND id = $2
	`
	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Photo not found")
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// ListPhotos returns a tenant's gallery in display order
func (r *PostgresGalleryRepository) ListPhotos(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.Photo, error) {
	query := `
		SELECT id, tenant_id, sort_order, image_name
		FROM gallery_photos
		WHERE tenant_id = $1
		ORDER BY sort_order ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, opts.EffectiveLimit(), opts.Offset())
	if err != nil {
		r.logger.Error("failed to list photos",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	var photos []*domain.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

// UpdatePhoto writes a photo; the tenant filter is part of the statement
func (r *PostgresGalleryRepository) UpdatePhoto(ctx context.Context, photo *domain.Photo) error {
	query := `
		UPDATE gallery_photos
		SET image_name = $1
		WHERE tenant_id = $2 AND id = $3
	`
	result, err := r.db.ExecContext(ctx, query, photo.ImageName, photo.TenantID, photo.ID)
	if err != nil {
		return fmt.Errorf("failed to update photo: %w", err)
	}
	return requireAffected(result, "Photo")
}

// DeletePhoto removes a photo within a tenant
func (r *PostgresGalleryRepository) DeletePhoto(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM gallery_photos WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return requireAffected(result, "Photo")
}

// UpdateOrder applies a batch reorder for the tenant's gallery
func (r *PostgresGalleryRepository) UpdateOrder(ctx context.Context, tenantID string, order []domain.OrderUpdate) error {
	return updateSortOrder(ctx, r.db, "gallery_photos", tenantID, order)
}
