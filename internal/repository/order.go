package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cloudylake/tenantapi/internal/domain"
)

// updateSortOrder applies a batch of position updates in one
// transaction. Any id outside the tenant matches no row and aborts the
// whole batch, so a reorder can never move another tenant's records.
func updateSortOrder(ctx context.Context, db *sql.DB, table, tenantID string, order []domain.OrderUpdate) error {
	if len(order) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`UPDATE %s SET sort_order = $1 WHERE tenant_id = $2 AND id = $3`, table)
	for _, item := range order {
		result, err := tx.ExecContext(ctx, query, item.Order, tenantID, item.ID)
		if err != nil {
			return fmt.Errorf("failed to update sort order: %w", err)
		}
		if err := requireAffected(result, "Record"); err != nil {
			return err
		}
	}

	return tx.Commit()
}
