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

// PostgresPostRepository implements domain.PostRepository using PostgreSQL
type PostgresPostRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPostRepository creates a new post repository
func NewPostgresPostRepository(db *sql.DB, logger *slog.Logger) *PostgresPostRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPostRepository{db: db, logger: logger}
}

func scanPost(row interface{ Scan(...interface{}) error }) (*domain.Post, error) {
	post := &domain.Post{}
	var image sql.NullString
	err := row.Scan(&post.ID, &post.TenantID, &post.Title, &post.Slug, &post.Description, &post.Date, &image)
	if err != nil {
		return nil, err
	}
	post.Image = image.String
	return post, nil
}

// Create inserts a post stamped with its owning tenant
func (r *PostgresPostRepository) Create(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (tenant_id, title, slug, description, date, image)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		post.TenantID, post.Title, post.Slug, post.Description, post.Date, post.Image,
	).Scan(&post.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Validation("A post with this slug already exists")
		}
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetByID retrieves a post within a tenant
func (r *PostgresPostRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Post, error) {
	query := `
		SELECT id, tenant_id, title, slug, description, date, COALESCE(image, '')
		FROM posts
		WHERE tenant_id = $1 AND id = $2
	`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Post not found")
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// List returns a page of posts for a tenant, newest first by default
func (r *PostgresPostRepository) List(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.Post, error) {
	where := "tenant_id = $1"
	args := []interface{}{tenantID}

	for col, val := range opts.Filters {
		dbCol, ok := postFilterColumns[col]
		if !ok {
			continue
		}
		args = append(args, val)
		where += fmt.Sprintf(" AND %s = $%d", dbCol, len(args))
	}

	orderBy := orderClause(opts.Sort, postSortColumns, "date DESC")
	args = append(args, opts.EffectiveLimit(), opts.Offset())

	query := fmt.Sprintf(`
		SELECT id, tenant_id, title, slug, description, date, COALESCE(image, '')
		FROM posts
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderBy, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list posts",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Update writes a post; the tenant filter is part of the statement
func (r *PostgresPostRepository) Update(ctx context.Context, post *domain.Post) error {
	query := `
		UPDATE posts
		SET title = $1, slug = $2, description = $3, date = $4, image = NULLIF($5, '')
		WHERE tenant_id = $6 AND id = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		post.Title, post.Slug, post.Description, post.Date, post.Image,
		post.TenantID, post.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Validation("A post with this slug already exists")
		}
		return fmt.Errorf("failed to update post: %w", err)
	}
	return requireAffected(result, "Post")
}

// Delete removes a post within a tenant
func (r *PostgresPostRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireAffected(result, "Post")
}

var postFilterColumns = map[string]string{
	"slug":  "slug",
	"title": "title",
}

var postSortColumns = map[string]string{
	"date":  "date",
	"title": "title",
	"slug":  "slug",
}
