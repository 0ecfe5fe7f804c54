package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/cloudylake/tenantapi/internal/apperror"
)

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation (code 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// requireAffected converts a zero-row mutation into a not-found error.
// Tenant-scoped updates rely on this: a wrong-tenant id matches no rows
// and surfaces exactly like a missing record.
func requireAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(entity + " not found")
	}
	return nil
}

// orderClause maps an API sort expression ("-createdAt,title") onto a
// SQL ORDER BY using a per-entity column whitelist. Unknown fields are
// dropped; an empty result falls back to the default.
func orderClause(sort string, columns map[string]string, fallback string) string {
	if sort == "" {
		return fallback
	}

	var parts []string
	for _, field := range strings.Split(sort, ",") {
		field = strings.TrimSpace(field)
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			field = field[1:]
			dir = "DESC"
		}
		col, ok := columns[field]
		if !ok {
			continue
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}
