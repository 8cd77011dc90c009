package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/attendance-hq/apiserver/types"
	"github.com/google/uuid"
)

// EmployeeRepository handles persistence for employees.
type EmployeeRepository struct {
	db *sql.DB
}

func NewEmployeeRepository(db *sql.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, custom_id, name, designation, status, profile_image, user_id, created_at, updated_at`

func scanEmployee(row rowScanner) (types.Employee, error) {
	var employee types.Employee
	var customID, profileImage, userID sql.NullString
	err := row.Scan(
		&employee.ID,
		&customID,
		&employee.Name,
		&employee.Designation,
		&employee.Status,
		&profileImage,
		&userID,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	)
	if err != nil {
		return types.Employee{}, translate(err)
	}
	employee.CustomID = customID.String
	employee.ProfileImage = profileImage.String
	employee.UserID = userID.String
	return employee, nil
}

func (r *EmployeeRepository) queryEmployees(ctx context.Context, query string, args ...any) ([]types.Employee, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]types.Employee, 0)
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *EmployeeRepository) List(ctx context.Context) ([]types.Employee, error) {
	return r.queryEmployees(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY created_at DESC`)
}

func (r *EmployeeRepository) ListByUser(ctx context.Context, userID string) ([]types.Employee, error) {
	if !validID(userID) {
		return []types.Employee{}, nil
	}
	return r.queryEmployees(ctx, `SELECT `+employeeColumns+` FROM employees WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (types.Employee, error) {
	if !validID(id) {
		return types.Employee{}, ErrNotFound
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	return scanEmployee(r.db.QueryRowContext(ctx, query, id))
}

func (r *EmployeeRepository) GetByCustomID(ctx context.Context, customID string) (types.Employee, error) {
	if customID == "" {
		return types.Employee{}, ErrNotFound
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE custom_id = $1`
	return scanEmployee(r.db.QueryRowContext(ctx, query, customID))
}

func (r *EmployeeRepository) Create(ctx context.Context, employee types.Employee) (types.Employee, error) {
	now := time.Now()
	employee.ID = uuid.NewString()
	employee.CreatedAt = now
	employee.UpdatedAt = now

	const query = `
		INSERT INTO employees (id, custom_id, name, designation, status, profile_image, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		employee.ID,
		nullString(employee.CustomID),
		employee.Name,
		employee.Designation,
		employee.Status,
		nullString(employee.ProfileImage),
		nullString(employee.UserID),
		employee.CreatedAt,
		employee.UpdatedAt,
	); err != nil {
		return types.Employee{}, translate(err)
	}
	return employee, nil
}

// UpsertByCustomID creates the employee or refreshes name, designation and
// status of the employee holding the same custom id.
func (r *EmployeeRepository) UpsertByCustomID(ctx context.Context, employee types.Employee) (types.Employee, error) {
	now := time.Now()
	const query = `
		INSERT INTO employees (id, custom_id, name, designation, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (custom_id) DO UPDATE
		SET name = EXCLUDED.name,
			designation = EXCLUDED.designation,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + employeeColumns
	return scanEmployee(r.db.QueryRowContext(
		ctx,
		query,
		uuid.NewString(),
		employee.CustomID,
		employee.Name,
		employee.Designation,
		employee.Status,
		now,
	))
}

func (r *EmployeeRepository) Update(ctx context.Context, employee types.Employee) (types.Employee, error) {
	if !validID(employee.ID) {
		return types.Employee{}, ErrNotFound
	}
	employee.UpdatedAt = time.Now()

	const query = `
		UPDATE employees
		SET custom_id = $1,
			name = $2,
			designation = $3,
			status = $4,
			profile_image = $5,
			user_id = $6,
			updated_at = $7
		WHERE id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		nullString(employee.CustomID),
		employee.Name,
		employee.Designation,
		employee.Status,
		nullString(employee.ProfileImage),
		nullString(employee.UserID),
		employee.UpdatedAt,
		employee.ID,
	)
	if err != nil {
		return types.Employee{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Employee{}, err
	}
	if affected == 0 {
		return types.Employee{}, ErrNotFound
	}
	return employee, nil
}

// Delete removes the employee and every attendance event referencing it in
// one transaction. It returns the number of attendance events removed.
func (r *EmployeeRepository) Delete(ctx context.Context, id string) (int64, error) {
	if !validID(id) {
		return 0, ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE employee_id = $1`, id)
	if err != nil {
		return 0, translate(err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	result, err = tx.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return 0, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}
