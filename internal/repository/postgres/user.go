package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/models"
	"github.com/openfield/identity/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, email, name, password_hash, roles, is_blocked, token_version, created_at, updated_at`

const createUser = `-- name: CreateUser
INSERT INTO users (id, email, name, password_hash, roles)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, email, name, password_hash, roles, is_blocked, token_version, created_at, updated_at
`

func (r *UserRepo) Create(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	roles := arg.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), arg.Email, arg.Name, arg.HashedPassword, roles)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrEmailTaken
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT ` + userColumns + ` FROM users
WHERE email = $1
`

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const listUsers = `-- name: ListUsers
SELECT ` + userColumns + ` FROM users
ORDER BY created_at
`

func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsers)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

const updateUser = `-- name: UpdateUser
UPDATE users
SET email = COALESCE($2, email),
    name = COALESCE($3, name),
    updated_at = now()
WHERE id = $1
RETURNING ` + userColumns + `
`

func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, arg repository.UpdateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateUser, id, arg.Email, arg.Name)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrEmailTaken
		}

		return user, fmt.Errorf("db error: %w", err)
	}
}

const setPassword = `-- name: SetPassword
UPDATE users
SET password_hash = $2,
    token_version = token_version + $3,
    updated_at = now()
WHERE id = $1
`

func (r *UserRepo) SetPassword(ctx context.Context, id uuid.UUID, hashedPassword string, bumpVersion bool) error {
	bump := 0
	if bumpVersion {
		bump = 1
	}

	tag, err := r.DB.Exec(ctx, setPassword, id, hashedPassword, bump)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const setBlocked = `-- name: SetBlocked
UPDATE users
SET is_blocked = $2, updated_at = now()
WHERE id = $1
`

func (r *UserRepo) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	tag, err := r.DB.Exec(ctx, setBlocked, id, blocked)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const setRoles = `-- name: SetRoles
UPDATE users
SET roles = $2, updated_at = now()
WHERE id = $1
`

func (r *UserRepo) SetRoles(ctx context.Context, id uuid.UUID, roles []string) error {
	tag, err := r.DB.Exec(ctx, setRoles, id, roles)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const bumpTokenVersion = `-- name: BumpTokenVersion
UPDATE users
SET token_version = token_version + 1, updated_at = now()
WHERE id = $1
`

func (r *UserRepo) BumpTokenVersion(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, bumpTokenVersion, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = $1
`

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteUser, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.HashedPassword, &u.Roles, &u.IsBlocked, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
