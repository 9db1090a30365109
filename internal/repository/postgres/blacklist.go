package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openfield/identity/internal/models"
)

type BlacklistRepo struct {
	DB DBTX
}

const addBlacklisted = `-- name: AddBlacklistedToken
INSERT INTO blacklisted_tokens (id, fingerprint, user_id, reason, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (fingerprint) DO NOTHING
`

func (r *BlacklistRepo) Add(ctx context.Context, token models.BlacklistedToken) error {
	id := token.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := r.DB.Exec(ctx, addBlacklisted, id, token.Fingerprint, token.UserID, token.Reason, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const getBlacklisted = `-- name: GetBlacklistedToken
SELECT expires_at FROM blacklisted_tokens
WHERE fingerprint = $1
`

const deleteBlacklisted = `-- name: DeleteBlacklistedToken
DELETE FROM blacklisted_tokens
WHERE fingerprint = $1
`

// IsListed checks the fingerprint against the blacklist.
// Entries past their own expiry are removed on the spot: the token they
// guarded could not pass signature checks anymore anyway
func (r *BlacklistRepo) IsListed(ctx context.Context, fingerprint string) (bool, error) {
	rows, _ := r.DB.Query(ctx, getBlacklisted, fingerprint)
	expiresAt, err := pgx.CollectOneRow(rows, pgx.RowTo[time.Time])

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("db error: %w", err)
	}

	if expiresAt.Before(time.Now()) {
		if _, err := r.DB.Exec(ctx, deleteBlacklisted, fingerprint); err != nil {
			return false, fmt.Errorf("db error: %w", err)
		}
		return false, nil
	}

	return true, nil
}

const deleteExpiredBlacklisted = `-- name: DeleteExpiredBlacklistedTokens
DELETE FROM blacklisted_tokens
WHERE expires_at < $1
`

func (r *BlacklistRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredBlacklisted, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}
