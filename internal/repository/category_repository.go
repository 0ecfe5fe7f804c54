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

// PostgresCategoryRepository implements domain.CategoryRepository using PostgreSQL
type PostgresCategoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCategoryRepository creates a new category repository
func NewPostgresCategoryRepository(db *sql.DB, logger *slog.Logger) *PostgresCategoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCategoryRepository{db: db, logger: logger}
}

func scanCategory(row interface{ Scan(...interface{}) error }) (*domain.Category, error) {
	category := &domain.Category{}
	err := row.Scan(&category.ID, &category.TenantID, &category.Order, &category.Title, &category.Slug, &category.Icon)
	if err != nil {
		return nil, err
	}
	return category, nil
}

// Create inserts a category at the end of the tenant's list
func (r *PostgresCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (tenant_id, sort_order, title, slug, icon)
		VALUES (
			$1,
			COALESCE((SELECT MAX(sort_order) + 1 FROM categories WHERE tenant_id = $1), 0),
			$2, $3, $4
		)
		RETURNING id, sort_order
	`
	err := r.db.QueryRowContext(ctx, query,
		category.TenantID, category.Title, category.Slug, category.Icon,
	).Scan(&category.ID, &category.Order)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Validation("A category with this slug already exists")
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetByID retrieves a category within a tenant
func (r *PostgresCategoryRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Category, error) {
	query := `
		SELECT id, tenant_id, sort_order, title, slug, icon
		FROM categories
		WHERE tenant_id = $1 AND id = $2
	`
	category, err := scanCategory(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Category not found")
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// List returns a tenant's categories in display order
func (r *PostgresCategoryRepository) List(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.Category, error) {
	where := "tenant_id = $1"
	args := []interface{}{tenantID}

	if slug, ok := opts.Filters["slug"]; ok {
		args = append(args, slug)
		where += fmt.Sprintf(" AND slug = $%d", len(args))
	}

	args = append(args, opts.EffectiveLimit(), opts.Offset())
	query := fmt.Sprintf(`
		SELECT id, tenant_id, sort_order, title, slug, icon
		FROM categories
		WHERE %s
		ORDER BY sort_order ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list categories",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// Update writes a category; the tenant filter is part of the statement
func (r *PostgresCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET title = $1, slug = $2, icon = $3
		WHERE tenant_id = $4 AND id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		category.Title, category.Slug, category.Icon,
		category.TenantID, category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Validation("A category with this slug already exists")
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireAffected(result, "Category")
}

// Delete removes a category within a tenant
func (r *PostgresCategoryRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return requireAffected(result, "Category")
}

// UpdateOrder applies a batch reorder for the tenant's categories
func (r *PostgresCategoryRepository) UpdateOrder(ctx context.Context, tenantID string, order []domain.OrderUpdate) error {
	return updateSortOrder(ctx, r.db, "categories", tenantID, order)
}
