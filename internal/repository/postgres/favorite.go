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
)

type FavoriteRepo struct {
	DB DBTX
}

const addFavorite = `-- name: AddFavorite
INSERT INTO favorite_fields (user_id, field_id)
VALUES ($1, $2)
RETURNING id, user_id, field_id, created_at
`

func (r *FavoriteRepo) Add(ctx context.Context, userID uuid.UUID, fieldID int64) (models.FavoriteField, error) {
	rows, _ := r.DB.Query(ctx, addFavorite, userID, fieldID)
	fav, err := pgx.CollectOneRow(rows, rowToFavorite)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fav, apperrors.ErrFavoriteExists
		}

		return fav, fmt.Errorf("db error: %w", err)
	}

	return fav, nil
}

const removeFavorite = `-- name: RemoveFavorite
DELETE FROM favorite_fields
WHERE user_id = $1 AND field_id = $2
`

func (r *FavoriteRepo) Remove(ctx context.Context, userID uuid.UUID, fieldID int64) error {
	tag, err := r.DB.Exec(ctx, removeFavorite, userID, fieldID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrFavoriteNotFound
	}

	return nil
}

const listFavorites = `-- name: ListFavorites
SELECT id, user_id, field_id, created_at
FROM favorite_fields
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *FavoriteRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.FavoriteField, error) {
	rows, _ := r.DB.Query(ctx, listFavorites, userID)
	list, err := pgx.CollectRows(rows, rowToFavorite)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return list, nil
}

func rowToFavorite(row pgx.CollectableRow) (models.FavoriteField, error) {
	var f models.FavoriteField
	err := row.Scan(&f.ID, &f.UserID, &f.FieldID, &f.CreatedAt)
	return f, err
}
