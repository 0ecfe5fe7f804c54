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

// PostgresEmployeeRepository implements domain.EmployeeRepository using PostgreSQL
type PostgresEmployeeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresEmployeeRepository creates a new employee repository
func NewPostgresEmployeeRepository(db *sql.DB, logger *slog.Logger) *PostgresEmployeeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEmployeeRepository{db: db, logger: logger}
}

func scanEmployee(row interface{ Scan(...interface{}) error }) (*domain.Employee, error) {
	employee := &domain.Employee{}
	var signature, imageName sql.NullString
	err := row.Scan(&employee.ID, &employee.TenantID, &employee.Name, &employee.Description, &signature, &imageName)
	if err != nil {
		return nil, err
	}
	employee.Signature = signature.String
	employee.ImageName = imageName.String
	return employee, nil
}

// Create inserts an employee record
func (r *PostgresEmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	query := `
		INSERT INTO employees (tenant_id, name, description, signature, image_name)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		employee.TenantID, employee.Name, employee.Description, employee.Signature, employee.ImageName,
	).Scan(&employee.ID)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

// GetByID retrieves an employee within a tenant
func (r *PostgresEmployeeRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Employee, error) {
	query := `
		SELECT id, tenant_id, name, description, signature, image_name
		FROM employees
		WHERE tenant_id = $1 AND id = $2
	`
	employee, err := scanEmployee(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Employee not found")
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return employee, nil
}

// List returns a page of employees for a tenant
func (r *PostgresEmployeeRepository) List(ctx context.Context, tenantID string, opts domain.ListOptions) ([]*domain.Employee, error) {
	where := "tenant_id = $1"
	args := []interface{}{tenantID}

	if name, ok := opts.Filters["name"]; ok {
		args = append(args, name)
		where += fmt.Sprintf(" AND name = $%d", len(args))
	}

	orderBy := orderClause(opts.Sort, employeeSortColumns, "name ASC")
	args = append(args, opts.EffectiveLimit(), opts.Offset())

	query := fmt.Sprintf(`
		SELECT id, tenant_id, name, description, signature, image_name
		FROM employees
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderBy, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list employees",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*domain.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

// Update writes an employee; the tenant filter is part of the statement
func (r *PostgresEmployeeRepository) Update(ctx context.Context, employee *domain.Employee) error {
	query := `
		UPDATE employees
		SET name = $1, description = $2, signature = NULLIF($3, ''), image_name = NULLIF($4, '')
		WHERE tenant_id = $5 AND id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		employee.Name, employee.Description, employee.Signature, employee.ImageName,
		employee.TenantID, employee.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return requireAffected(result, "Employee")
}

// Delete removes an employee within a tenant
func (r *PostgresEmployeeRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	return requireAffected(result, "Employee")
}

var employeeSortColumns = map[string]string{
	"name": "name",
}
