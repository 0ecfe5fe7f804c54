package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
)

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL
type PostgresTenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository
func NewPostgresTenantRepository(db *sql.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

const tenantSelect = `
	SELECT t.id, t.slug, t.name, COALESCE(t.domain, ''),
	       COALESCE(array_agg(m.user_id::text) FILTER (WHERE m.user_id IS NOT NULL), '{}'),
	       t.created_at, t.updated_at
	FROM tenants t
	LEFT JOIN tenant_members m ON m.tenant_slug = t.slug
`

func scanTenant(row interface{ Scan(...interface{}) error }) (*domain.Tenant, error) {
	tenant := &domain.Tenant{}
	var members []string
	err := row.Scan(
		&tenant.ID,
		&tenant.Slug,
		&tenant.Name,
		&tenant.Domain,
		pq.Array(&members),
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tenant.Members = members
	return tenant, nil
}

// Create inserts a tenant
func (r *PostgresTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (slug, name, domain)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, tenant.Slug, tenant.Name, tenant.Domain).
		Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Validation("A tenant with this name or domain already exists")
		}
		r.logger.Error("failed to create tenant",
			slog.String("slug", tenant.Slug),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by id
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, err := scanTenant(r.db.QueryRowContext(ctx, tenantSelect+` WHERE t.id = $1 GROUP BY t.id`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Tenant not found")
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return tenant, nil
}

// GetBySlug retrieves a tenant by its short identifier
func (r *PostgresTenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	tenant, err := scanTenant(r.db.QueryRowContext(ctx, tenantSelect+` WHERE t.slug = $1 GROUP BY t.id`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Tenant not found")
		}
		return nil, fmt.Errorf("failed to get tenant by slug: %w", err)
	}
	return tenant, nil
}

// SlugExists reports whether a slug is already taken
func (r *PostgresTenantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// Update writes the mutable tenant fields. The slug never changes.
func (r *PostgresTenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, domain = NULLIF($2, ''), updated_at = now()
		WHERE id = $3
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, tenant.Name, tenant.Domain, tenant.ID).Scan(&tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("Tenant not found")
		}
		if isUniqueViolation(err) {
			return apperror.Validation("A tenant with this name or domain already exists")
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

// Delete removes a tenant and all its memberships
func (r *PostgresTenantRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tenant_members WHERE tenant_slug = (SELECT slug FROM tenants WHERE id = $1)`, id,
	); err != nil {
		return fmt.Errorf("failed to detach members: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if err := requireAffected(result, "Tenant"); err != nil {
		return err
	}

	return tx.Commit()
}

// List returns all tenants
func (r *PostgresTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, tenantSelect+` GROUP BY t.id ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

// AttachMember adds a user to a tenant by slug
func (r *PostgresTenantRepository) AttachMember(ctx context.Context, tenantID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenant_members (tenant_slug, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		tenantID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach member: %w", err)
	}
	return nil
}

// DetachMember removes a user from a tenant
func (r *PostgresTenantRepository) DetachMember(ctx context.Context, tenantID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tenant_members WHERE tenant_slug = $1 AND user_id = $2`,
		tenantID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to detach member: %w", err)
	}
	return requireAffected(result, "Membership")
}
