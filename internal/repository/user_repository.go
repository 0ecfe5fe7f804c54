package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserRepository{db: db, logger: logger}
}

const userColumns = `
	u.id, u.user_name, u.email, u.password_hash, u.role,
	u.active, u.is_invite, u.password_changed_at,
	u.password_reset_token_hash, u.password_reset_expires,
	u.created_at, u.updated_at,
	COALESCE(array_agg(m.tenant_slug) FILTER (WHERE m.tenant_slug IS NOT NULL), '{}')
`

// selectQuery builds a user select with the soft-delete default
// predicate. Inactive users are filtered out unless the caller asks
// for the administrative bypass explicitly.
func selectQuery(where string, includeInactive bool) string {
	if !includeInactive {
		where += " AND u.active = true"
	}
	return fmt.Sprintf(`
		SELECT %s
		FROM users u
		LEFT JOIN tenant_members m ON m.user_id = u.id
		WHERE %s
		GROUP BY u.id
	`, userColumns, where)
}

func scanUser(row interface{ Scan(...interface{}) error }) (*domain.User, error) {
	user := &domain.User{}
	var (
		userName    sql.NullString
		passHash    sql.NullString
		changedAt   sql.NullTime
		resetHash   sql.NullString
		resetExpiry sql.NullTime
		tenants     []string
	)

	err := row.Scan(
		&user.ID,
		&userName,
		&user.Email,
		&passHash,
		&user.Role,
		&user.Active,
		&user.IsInvite,
		&changedAt,
		&resetHash,
		&resetExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
		pq.Array(&tenants),
	)
	if err != nil {
		return nil, err
	}

	user.UserName = userName.String
	user.PasswordHash = passHash.String
	user.PasswordResetTokenHash = resetHash.String
	user.Tenants = tenants
	if changedAt.Valid {
		t := changedAt.Time
		user.PasswordChangedAt = &t
	}
	if resetExpiry.Valid {
		t := resetExpiry.Time
		user.PasswordResetExpires = &t
	}
	return user, nil
}

// Create inserts a user and its tenant memberships in one transaction
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (user_name, email, password_hash, role, active, is_invite, password_changed_at)
		VALUES (NULLIF($1, ''), $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	var changedAt sql.NullTime
	if user.PasswordChangedAt != nil {
		changedAt = sql.NullTime{Time: *user.PasswordChangedAt, Valid: true}
	}

	err = tx.QueryRowContext(
		ctx, query,
		user.UserName,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.Role,
		user.Active,
		user.IsInvite,
		changedAt,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Validation("A user with this email already exists")
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	for _, slug := range user.Tenants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tenant_members (tenant_slug, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			slug, user.ID,
		); err != nil {
			return fmt.Errorf("failed to attach tenant membership: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a user by id
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string, includeInactive bool) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectQuery("u.id = $1", includeInactive), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by lowercase email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string, includeInactive bool) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectQuery("u.email = $1", includeInactive), strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetInviteByEmail retrieves a pending invite record for the email
func (r *PostgresUserRepository) GetInviteByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		selectQuery("u.email = $1 AND u.is_invite = true", false),
		strings.ToLower(email),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Invite not found")
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return user, nil
}

// GetByResetTokenHash retrieves the user holding an unexpired reset
// token hash. Expiry is part of the predicate, not a separate check.
func (r *PostgresUserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		selectQuery("u.password_reset_token_hash = $1 AND u.password_reset_expires > $2", false),
		tokenHash, now,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.Validation("Token is invalid or has expired")
		}
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}
	return user, nil
}

// Update writes profile fields. Memberships change through the tenant
// repository, secrets through UpdatePassword.
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET user_name = NULLIF($1, ''), email = $2, role = $3, is_invite = $4,
		    password_hash = COALESCE(NULLIF($5, ''), password_hash),
		    updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		user.UserName,
		strings.ToLower(user.Email),
		user.Role,
		user.IsInvite,
		user.PasswordHash,
		user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("User not found")
		}
		if isUniqueViolation(err) {
			return apperror.Validation("A user with this email already exists")
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdatePassword sets a new secret hash, stamps the change time, and
// clears any outstanding reset token in the same statement.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_changed_at = $2,
		    password_reset_token_hash = NULL, password_reset_expires = NULL,
		    updated_at = now()
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, passwordHash, changedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(result, "User")
}

// SetResetToken stores a reset token hash and expiry
func (r *PostgresUserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_reset_token_hash = $1, password_reset_expires = $2, updated_at = now() WHERE id = $3`,
		tokenHash, expires, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return requireAffected(result, "User")
}

// ClearResetToken removes a dangling reset capability
func (r *PostgresUserRepository) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_reset_token_hash = NULL, password_reset_expires = NULL, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a user
func (r *PostgresUserRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return requireAffected(result, "User")
}

// Delete removes a user permanently and detaches all tenant memberships
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tenant_members WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to detach memberships: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := requireAffected(result, "User"); err != nil {
		return err
	}

	return tx.Commit()
}

// ListByTenant lists active users in a tenant. An empty tenant id lists
// across all tenants (super-admin scope).
func (r *PostgresUserRepository) ListByTenant(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.User, error) {
	where := "u.active = true"
	args := []interface{}{}

	if tenantID != "" {
		args = append(args, tenantID)
		where += fmt.Sprintf(" AND u.id IN (SELECT user_id FROM tenant_members WHERE tenant_slug = $%d)", len(args))
	}
	for col, val := range opts.Filters {
		dbCol, ok := userFilterColumns[col]
		if !ok {
			continue
		}
		args = append(args, val)
		where += fmt.Sprintf(" AND %s = $%d", dbCol, len(args))
	}

	orderBy := orderClause(opts.Sort, userSortColumns, "u.created_at DESC")
	args = append(args, opts.EffectiveLimit(), opts.Offset())

	query := fmt.Sprintf(`
		SELECT %s
		FROM users u
		LEFT JOIN tenant_members m ON m.user_id = u.id
		WHERE %s
		GROUP BY u.id
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, userColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list users",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

var userFilterColumns = map[string]string{
	"role":     "u.role",
	"email":    "u.email",
	"isInvite": "u.is_invite",
}

var userSortColumns = map[string]string{
	"createdAt": "u.created_at",
	"email":     "u.email",
	"userName":  "u.user_name",
	"role":      "u.role",
}
