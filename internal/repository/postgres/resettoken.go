package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/models"
)

type ResetTokenRepo struct {
	DB DBTX
}

const createResetToken = `-- name: CreateResetToken
INSERT INTO password_reset_tokens (id, token, user_id, expires_at, used)
VALUES ($1, $2, $3, $4, $5)
`

func (r *ResetTokenRepo) Create(ctx context.Context, token models.PasswordResetToken) error {
	id := token.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := r.DB.Exec(ctx, createResetToken, id, token.Token, token.UserID, token.ExpiresAt, token.Used)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const getResetToken = `-- name: GetResetToken
SELECT id, token, user_id, expires_at, used, created_at
FROM password_reset_tokens
WHERE token = $1
`

func (r *ResetTokenRepo) GetByToken(ctx context.Context, tokenString string) (models.PasswordResetToken, error) {
	rows, _ := r.DB.Query(ctx, getResetToken, tokenString)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.PasswordResetToken, error) {
		var t models.PasswordResetToken
		err := row.Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.Used, &t.CreatedAt)
		return t, err
	})

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrResetTokenInvalid
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const markResetTokenUsed = `-- name: MarkResetTokenUsed
UPDATE password_reset_tokens
SET used = TRUE
WHERE token = $1 AND used = FALSE
`

// MarkUsed flips the used flag only when it is still unset, so two
// concurrent resets with the same token can't both pass
func (r *ResetTokenRepo) MarkUsed(ctx context.Context, tokenString string) error {
	tag, err := r.DB.Exec(ctx, markResetTokenUsed, tokenString)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either unknown or already used, tell them apart for the caller
		if _, err := r.GetByToken(ctx, tokenString); err != nil {
			return err
		}
		return apperrors.ErrResetTokenUsed
	}

	return nil
}

const deleteExpiredResetTokens = `-- name: DeleteExpiredResetTokens
DELETE FROM password_reset_tokens
WHERE expires_at < $1
`

func (r *ResetTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredResetTokens, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}
