package passreset

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/models"
	"github.com/openfield/identity/internal/repository"
	"github.com/openfield/identity/internal/service/auth"
)

const (
	// Fixed reset token lifetime
	tokenTTL = time.Hour

	// 32 random bytes, 64 hex characters
	tokenBytesLen = 32
)

// Mailer dispatches reset emails. Delivery is someone else's problem,
// implementations only enqueue
type Mailer interface {
	SendPasswordReset(ctx context.Context, email string, token string) error
	SendPasswordChanged(ctx context.Context, email string) error
}

type Config struct {
	Hasher auth.PasswordHasher
	Logger logger.Logger
}

// Service implements the forgot/reset password flow on top of the
// one-time token ledger
type Service struct {
	store  repository.Storage
	mailer Mailer
	hasher auth.PasswordHasher
	logger logger.Logger
}

func NewService(cfg Config, store repository.Storage, mailer Mailer) (*Service, error) {
	if store == nil || mailer == nil {
		return nil, errors.New("storage and mailer must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	l := cfg.Logger
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		store:  store,
		mailer: mailer,
		hasher: hasher,
		logger: l,
	}, nil
}

// Request mints a reset token for the account behind the email.
// Always returns nil for unknown emails: the response must not reveal
// whether an account exists
func (s *Service) Request(ctx context.Context, email string) error {
	user, err := s.store.User().GetByEmail(ctx, auth.NormalizeEmail(email))
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return nil
	case err != nil:
		return err
	}

	b := make([]byte, tokenBytesLen)
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("error while generating reset token. Err: %w", err)
	}
	token := hex.EncodeToString(b)

	err = s.store.ResetToken().Create(ctx, models.PasswordResetToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(tokenTTL),
	})
	if err != nil {
		return fmt.Errorf("error while saving reset token. Err: %w", err)
	}

	// Email failures are logged, not returned: the caller's response
	// must stay identical either way
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Error("failed to enqueue password reset email", "error", err)
	}

	return nil
}

// Reset consumes the token and writes the new password as one
// transaction: no window exists where the token is burned but the
// password is not written. Every live session of the user is revoked
func (s *Service) Reset(ctx context.Context, token string, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password. Err: %w", err)
	}

	var email string

	err = s.store.InTx(ctx, func(store repository.Storage) error {
		reset, err := store.ResetToken().GetByToken(ctx, token)
		if err != nil {
			return err
		}

		if reset.Used {
			return apperrors.ErrResetTokenUsed
		}
		if reset.ExpiresAt.Before(time.Now()) {
			return apperrors.ErrResetTokenExpired
		}

		if err := store.ResetToken().MarkUsed(ctx, token); err != nil {
			return err
		}

		if err := store.User().SetPassword(ctx, reset.UserID, hash, true); err != nil {
			return err
		}

		user, err := store.User().GetByID(ctx, reset.UserID)
		if err != nil {
			return err
		}
		email = user.Email

		return nil
	})
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordChanged(ctx, email); err != nil {
		s.logger.Error("failed to enqueue password changed email", "error", err)
	}

	return nil
}
