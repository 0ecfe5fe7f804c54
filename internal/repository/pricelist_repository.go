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

// PostgresPriceListRepository implements domain.PriceListRepository using PostgreSQL
type PostgresPriceListRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPriceListRepository creates a new price list repository
func NewPostgresPriceListRepository(db *sql.DB, logger *slog.Logger) *PostgresPriceListRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPriceListRepository{db: db, logger: logger}
}

func scanPriceItem(row interface{ Scan(...interface{}) error }) (*domain.PriceItem, error) {
	item := &domain.PriceItem{}
	var duration, description sql.NullString
	err := row.Scan(&item.ID, &item.TenantID, &item.Order, &item.ItemName, &duration, &description, &item.ItemPrice)
	if err != nil {
		return nil, err
	}
	item.ItemDuration = duration.String
	item.ItemDescription = description.String
	return item, nil
}

// Create inserts a price item at the end of the tenant's list
func (r *PostgresPriceListRepository) Create(ctx context.Context, item *domain.PriceItem) error {
	query := `
		INSERT INTO price_items (tenant_id, sort_order, item_name, item_duration, item_description, item_price)
		VALUES (
			$1,
			COALESCE((SELECT MAX(sort_order) + 1 FROM price_items WHERE tenant_id = $1), 0),
			$2, NULLIF($3, ''), NULLIF($4, ''), $5
		)
		RETURNING id, sort_order
	`
	err := r.db.QueryRowContext(ctx, query,
		item.TenantID, item.ItemName, item.ItemDuration, item.ItemDescription, item.ItemPrice,
	).Scan(&item.ID, &item.Order)
	if err != nil {
		return fmt.Errorf("failed to create price item: %w", err)
	}
	return nil
}

// GetByID retrieves a price item within a tenant
func (r *PostgresPriceListRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.PriceItem, error) {
	query := `
		SELECT id, tenant_id, sort_order, item_name, item_duration, item_description, item_price
		FROM price_items
		WHERE tenant_id = $1 AND id = $2
	`
	item, err := scanPriceItem(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Price item not found")
		}
		return nil, fmt.Errorf("failed to get price item: %w", err)
	}
	return item, nil
}

// List returns a tenant's price items in display order
func (r *PostgresPriceListRepository) List(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.PriceItem, error) {
	query := `
		SELECT id, tenant_id, sort_order, item_name, item_duration, item_description, item_price
		FROM price_items
		WHERE tenant_id = $1
		ORDER BY sort_order ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, opts.EffectiveLimit(), opts.Offset())
	if err != nil {
		r.logger.Error("failed to list price items",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list price items: %w", err)
	}
	defer rows.Close()

	var items []*domain.PriceItem
	for rows.Next() {
		item, err := scanPriceItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update writes a price item; the tenant filter is part of the statement
func (r *PostgresPriceListRepository) Update(ctx context.Context, item *domain.PriceItem) error {
	query := `
		UPDATE price_items
		SET item_name = $1, item_duration = NULLIF($2, ''), item_description = NULLIF($3, ''), item_price = $4
		WHERE tenant_id = $5 AND id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		item.ItemName, item.ItemDuration, item.ItemDescription, item.ItemPrice,
		item.TenantID, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update price item: %w", err)
	}
	return requireAffected(result, "Price item")
}

// Delete removes a price item within a tenant
func (r *PostgresPriceListRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM price_items WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete price item: %w", err)
	}
	return requireAffected(result, "Price item")
}

// UpdateOrder applies a batch reorder for the tenant's price list
func (r *PostgresPriceListRepository) UpdateOrder(ctx context.Context, tenantID string, order []domain.OrderUpdate) error {
	return updateSortOrder(ctx, r.db, "price_items", tenantID, order)
}
