package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/attendance-hq/apiserver/types"
	"github.com/google/uuid"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, role, profile_picture, password_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var name, picture sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&name,
		&user.Role,
		&picture,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, translate(err)
	}
	user.Name = name.String
	user.ProfilePicture = picture.String
	return user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	if !validID(id) {
		return types.User{}, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, email, name, role, profile_picture, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		nullString(user.Name),
		user.Role,
		nullString(user.ProfilePicture),
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

// UpsertByEmail creates the user or resets the password, role and name of an
// existing user with the same email.
func (r *UserRepository) UpsertByEmail(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	const query = `
		INSERT INTO users (id, email, name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (email) DO UPDATE
		SET name = COALESCE(EXCLUDED.name, users.name),
			role = EXCLUDED.role,
			password_hash = EXCLUDED.password_hash,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(
		ctx,
		query,
		uuid.NewString(),
		user.Email,
		nullString(user.Name),
		user.Role,
		user.PasswordHash,
		now,
	))
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	if !validID(user.ID) {
		return types.User{}, ErrNotFound
	}
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET email = $1,
			name = $2,
			role = $3,
			profile_picture = $4,
			password_hash = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Email,
		nullString(user.Name),
		user.Role,
		nullString(user.ProfilePicture),
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
