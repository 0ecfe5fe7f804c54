package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
)

// PostgresConfigRepository implements domain.ConfigRepository using
// PostgreSQL. Values are stored as jsonb and addressed by key within a
// tenant.
type PostgresConfigRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresConfigRepository creates a new config repository
func NewPostgresConfigRepository(db *sql.DB, logger *slog.Logger) *PostgresConfigRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresConfigRepository{db: db, logger: logger}
}

func scanConfig(row interface{ Scan(...interface{}) error }) (*domain.ConfigEntry, error) {
	entry := &domain.ConfigEntry{}
	var value []byte
	if err := row.Scan(&entry.ID, &entry.TenantID, &entry.Key, &value); err != nil {
		return nil, err
	}
	entry.Value = json.RawMessage(value)
	return entry, nil
}

// Create inserts a config entry
func (r *PostgresConfigRepository) Create(ctx context.Context, entry *domain.ConfigEntry) error {
	query := `
		INSERT INTO configs (tenant_id, config_key, config_value)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, entry.TenantID, entry.Key, []byte(entry.Value)).Scan(&entry.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Validation("A config entry with this key already exists")
		}
		return fmt.Errorf("failed to create config entry: %w", err)
	}
	return nil
}

// GetByKey retrieves a config entry by key within a tenant
func (r *PostgresConfigRepository) GetByKey(ctx context.Context, tenantID, key string) (*domain.ConfigEntry, error) {
	query := `
		SELECT id, tenant_id, config_key, config_value
		FROM configs
		WHERE tenant_id = $1 AND config_key = $2
	`
	entry, err := scanConfig(r.db.QueryRowContext(ctx, query, tenantID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Config entry not found")
		}
		return nil, fmt.Errorf("failed to get config entry: %w", err)
	}
	return entry, nil
}

// List returns config entries for a tenant ordered by key
func (r *PostgresConfigRepository) List(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.ConfigEntry, error) {
	where := "tenant_id = $1"
	args := []interface{}{tenantID}

	if key, ok := opts.Filters["config_key"]; ok {
		args = append(args, key)
		where += fmt.Sprintf(" AND config_key = $%d", len(args))
	}

	args = append(args, opts.EffectiveLimit(), opts.Offset())
	query := fmt.Sprintf(`
		SELECT id, tenant_id, config_key, config_value
		FROM configs
		WHERE %s
		ORDER BY config_key ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list config entries",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list config entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ConfigEntry
	for rows.Next() {
		entry, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan config entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpdateByKey replaces the value of an existing key and returns the
// updated entry
func (r *PostgresConfigRepository) UpdateByKey(ctx context.Context, tenantID, key string, value json.RawMessage) (*domain.ConfigEntry, error) {
	query := `
		UPDATE configs
		SET config_value = $1
		WHERE tenant_id = $2 AND config_key = $3
		RETURNING id, tenant_id, config_key, config_value
	`
	entry, err := scanConfig(r.db.QueryRowContext(ctx, query, []byte(value), tenantID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Config entry not found")
		}
		return nil, fmt.Errorf("failed to update config entry: %w", err)
	}
	return entry, nil
}

// DeleteByKey removes a config entry by key within a tenant
func (r *PostgresConfigRepository) DeleteByKey(ctx context.Context, tenantID, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM configs WHERE tenant_id = $1 AND config_key = $2`, tenantID, key)
	if err != nil {
		return fmt.Errorf("failed to delete config entry: %w", err)
	}
	return requireAffected(result, "Config entry")
}
