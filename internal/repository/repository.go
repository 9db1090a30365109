package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openfield/identity/internal/models"
)

type CreateUserParams struct {
	Email          string
	Name           string
	HashedPassword string
	Roles          []string
}

// Fields left nil are not touched
type UpdateUserParams struct {
	Email *string
	Name  *string
}

// User repository interface
type UserRepo interface {
	// Create user
	// Must return apperrors.ErrEmailTaken if the email is already registered
	Create(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or email
	// Must return apperrors.ErrUserNotFound if no such user
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)

	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id uuid.UUID, arg UpdateUserParams) (models.User, error)

	// SetPassword writes a new password hash
	// With bumpVersion=true every previously issued token dies at next verification
	SetPassword(ctx context.Context, id uuid.UUID, hashedPassword string, bumpVersion bool) error

	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error
	SetRoles(ctx context.Context, id uuid.UUID, roles []string) error
	BumpTokenVersion(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Token blacklist repository interface
type BlacklistRepo interface {
	// Add revocation record. Adding the same fingerprint twice is a no-op
	Add(ctx context.Context, token models.BlacklistedToken) error

	// IsListed reports whether the fingerprint is currently revoked.
	// An entry past its own expiry is deleted lazily and reported as not listed
	IsListed(ctx context.Context, fingerprint string) (bool, error)

	// DeleteExpired bulk-removes stale entries, returns the count removed
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Password reset ledger repository interface
type ResetTokenRepo interface {
	Create(ctx context.Context, token models.PasswordResetToken) error

	// Must return apperrors.ErrResetTokenInvalid if no such token
	GetByToken(ctx context.Context, token string) (models.PasswordResetToken, error)

	// MarkUsed flips the used flag exactly once
	// Must return apperrors.ErrResetTokenUsed if it is already set
	MarkUsed(ctx context.Context, token string) error

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type NotificationRepo interface {
	Create(ctx context.Context, userID uuid.UUID, message string) (models.Notification, error)

	// Newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)

	// Scoped to the owning user
	// Must return apperrors.ErrNotificationNotFound if no such row for that user
	MarkRead(ctx context.Context, id int64, userID uuid.UUID) error
}

type FavoriteRepo interface {
	// Must return apperrors.ErrFavoriteExists if the pair is already present
	Add(ctx context.Context, userID uuid.UUID, fieldID int64) (models.FavoriteField, error)

	// Must return apperrors.ErrFavoriteNotFound if nothing was removed
	Remove(ctx context.Context, userID uuid.UUID, fieldID int64) error

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.FavoriteField, error)
}

// Storage aggregates every repository over one connection or transaction
type Storage interface {
	User() UserRepo
	Blacklist() BlacklistRepo
	ResetToken() ResetTokenRepo
	Notification() NotificationRepo
	Favorite() FavoriteRepo

	// InTx runs fn against a Storage bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
