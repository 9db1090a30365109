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

type NotificationRepo struct {
	DB DBTX
}

const createNotification = `-- name: CreateNotification
INSERT INTO notifications (user_id, message)
VALUES ($1, $2)
RETURNING id, user_id, message, is_read, created_at, updated_at
`

func (r *NotificationRepo) Create(ctx context.Context, userID uuid.UUID, message string) (models.Notification, error) {
	rows, _ := r.DB.Query(ctx, createNotification, userID, message)
	n, err := pgx.CollectOneRow(rows, rowToNotification)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return n, apperrors.ErrUserNotFound
		}

		return n, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

const listNotifications = `-- name: ListNotifications
SELECT id, user_id, message, is_read, created_at, updated_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *NotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	rows, _ := r.DB.Query(ctx, listNotifications, userID)
	list, err := pgx.CollectRows(rows, rowToNotification)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return list, nil
}

const markNotificationRead = `-- name: MarkNotificationRead
UPDATE notifications
SET is_read = TRUE, updated_at = now()
WHERE id = $1 AND user_id = $2
`

func (r *NotificationRepo) MarkRead(ctx context.Context, id int64, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, markNotificationRead, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}

	return nil
}

func rowToNotification(row pgx.CollectableRow) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}
