package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/attendance-hq/apiserver/types"
	"github.com/google/uuid"
)

// AttendanceLedger is the view of attendance available inside an employee
// transaction. Reads observe writes made earlier in the same transaction.
type AttendanceLedger interface {
	// FirstInWindow returns the earliest event with action in [from, to).
	FirstInWindow(ctx context.Context, employeeID string, action types.AttendanceAction, from, to time.Time) (types.Attendance, error)
	// FirstSince returns the earliest event with action at or after since.
	FirstSince(ctx context.Context, employeeID string, action types.AttendanceAction, since time.Time) (types.Attendance, error)
	Create(ctx context.Context, attendance types.Attendance) (types.Attendance, error)
}

// AttendanceRepository handles persistence for attendance events.
type AttendanceRepository struct {
	db *sql.DB
}

func NewAttendanceRepository(db *sql.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// InEmployeeTx runs fn in a transaction holding a row lock on the employee,
// so concurrent transitions for the same employee are serialized. The
// transaction commits only if fn returns nil.
func (r *AttendanceRepository) InEmployeeTx(ctx context.Context, employeeID string, fn func(ctx context.Context, ledger AttendanceLedger) error) error {
	if !validID(employeeID) {
		return ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var locked string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM employees WHERE id = $1 FOR UPDATE`, employeeID).Scan(&locked); err != nil {
		return translate(err)
	}

	if err := fn(ctx, &attendanceTx{tx: tx}); err != nil {
		return err
	}
	return translate(tx.Commit())
}

type attendanceTx struct {
	tx *sql.Tx
}

const attendanceColumns = `id, employee_id, action, recorded_at, to_char(work_date, 'YYYY-MM-DD'), photo_url`

func scanAttendance(row rowScanner) (types.Attendance, error) {
	var attendance types.Attendance
	var photo sql.NullString
	err := row.Scan(
		&attendance.ID,
		&attendance.EmployeeID,
		&attendance.Action,
		&attendance.Timestamp,
		&attendance.WorkDate,
		&photo,
	)
	if err != nil {
		return types.Attendance{}, translate(err)
	}
	attendance.PhotoURL = photo.String
	return attendance, nil
}

func (t *attendanceTx) FirstInWindow(ctx context.Context, employeeID string, action types.AttendanceAction, from, to time.Time) (types.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance
		WHERE employee_id = $1 AND action = $2 AND recorded_at >= $3 AND recorded_at < $4
		ORDER BY recorded_at
		LIMIT 1`
	return scanAttendance(t.tx.QueryRowContext(ctx, query, employeeID, action, from, to))
}

func (t *attendanceTx) FirstSince(ctx context.Context, employeeID string, action types.AttendanceAction, since time.Time) (types.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance
		WHERE employee_id = $1 AND action = $2 AND recorded_at >= $3
		ORDER BY recorded_at
		LIMIT 1`
	return scanAttendance(t.tx.QueryRowContext(ctx, query, employeeID, action, since))
}

func (t *attendanceTx) Create(ctx context.Context, attendance types.Attendance) (types.Attendance, error) {
	attendance.ID = uuid.NewString()

	const query = `
		INSERT INTO attendance (id, employee_id, action, recorded_at, work_date, photo_url)
		VALUES ($1, $2, $3, $4, $5::date, $6)`
	if _, err := t.tx.ExecContext(
		ctx,
		query,
		attendance.ID,
		attendance.EmployeeID,
		attendance.Action,
		attendance.Timestamp,
		attendance.WorkDate,
		nullString(attendance.PhotoURL),
	); err != nil {
		return types.Attendance{}, translate(err)
	}
	return attendance, nil
}

// filterClause renders filter as a WHERE clause over the attendance alias a.
func filterClause(filter types.AttendanceFilter) (string, []any) {
	var conditions []string
	var args []any
	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.EmployeeID != "" {
		add("a.employee_id = $%d", filter.EmployeeID)
	}
	if filter.From != nil {
		add("a.recorded_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		if filter.ToInclusive {
			add("a.recorded_at <= $%d", *filter.To)
		} else {
			add("a.recorded_at < $%d", *filter.To)
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

const recordColumns = `
	a.id, a.employee_id, a.action, a.recorded_at, to_char(a.work_date, 'YYYY-MM-DD'), a.photo_url,
	e.id, e.custom_id, e.name, e.designation, e.status, e.profile_image, e.user_id, e.created_at, e.updated_at`

func scanRecord(row rowScanner) (types.Attendance, error) {
	var attendance types.Attendance
	var employee types.Employee
	var photo, customID, profileImage, userID sql.NullString
	err := row.Scan(
		&attendance.ID,
		&attendance.EmployeeID,
		&attendance.Action,
		&attendance.Timestamp,
		&attendance.WorkDate,
		&photo,
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
		return types.Attendance{}, translate(err)
	}
	attendance.PhotoURL = photo.String
	employee.CustomID = customID.String
	employee.ProfileImage = profileImage.String
	employee.UserID = userID.String
	attendance.Employee = &employee
	return attendance, nil
}

func (r *AttendanceRepository) queryRecords(ctx context.Context, query string, args ...any) ([]types.Attendance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]types.Attendance, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// List returns one page of events joined with their employee, newest first,
// and the total number of events matching filter.
func (r *AttendanceRepository) List(ctx context.Context, filter types.AttendanceFilter, offset, limit int) ([]types.Attendance, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 50
	}

	where, args := filterClause(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM attendance a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + recordColumns + `
		FROM attendance a
		JOIN employees e ON e.id = a.employee_id` + where + fmt.Sprintf(`
		ORDER BY a.recorded_at DESC, a.id
		OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	records, err := r.queryRecords(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListAll returns every event matching filter, newest first.
func (r *AttendanceRepository) ListAll(ctx context.Context, filter types.AttendanceFilter) ([]types.Attendance, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + recordColumns + `
		FROM attendance a
		JOIN employees e ON e.id = a.employee_id` + where + `
		ORDER BY a.recorded_at DESC, a.id`
	return r.queryRecords(ctx, query, args...)
}

// Stats aggregates events matching filter. PresentToday counts check-ins in
// [todayStart, todayEnd) and ignores filter.
func (r *AttendanceRepository) Stats(ctx context.Context, filter types.AttendanceFilter, todayStart, todayEnd time.Time) (types.AttendanceStats, error) {
	where, args := filterClause(filter)
	query := `
		SELECT COUNT(1),
			COUNT(1) FILTER (WHERE a.action = 'CHECK_IN'),
			COUNT(1) FILTER (WHERE a.action = 'CHECK_OUT'),
			COUNT(DISTINCT a.employee_id)
		FROM attendance a` + where

	var stats types.AttendanceStats
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalRecords,
		&stats.CheckIns,
		&stats.CheckOuts,
		&stats.UniqueEmployees,
	); err != nil {
		return types.AttendanceStats{}, err
	}

	const presentQuery = `
		SELECT COUNT(1)
		FROM attendance
		WHERE action = 'CHECK_IN' AND recorded_at >= $1 AND recorded_at < $2`
	if err := r.db.QueryRowContext(ctx, presentQuery, todayStart, todayEnd).Scan(&stats.PresentToday); err != nil {
		return types.AttendanceStats{}, err
	}
	return stats, nil
}
