package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/models"
	"github.com/openfield/identity/internal/repository"
)

// Reasons recorded with revocation entries
const (
	RevokeReasonLogout   = "logout"
	RevokeReasonRotation = "rotation"
)

// Blacklist keeps explicitly revoked tokens until they would have
// expired on their own anyway
type Blacklist struct {
	store repository.Storage

	// Expiry written when the token's own exp can't be read.
	// Matches the longest lifetime any token could have
	fallbackTTL time.Duration

	// Reads the unverified expiry out of a token string
	expiry func(token string) (time.Time, bool)

	logger logger.Logger
}

func NewBlacklist(store repository.Storage, fallbackTTL time.Duration, expiry func(string) (time.Time, bool), l logger.Logger) *Blacklist {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Blacklist{
		store:       store,
		fallbackTTL: fallbackTTL,
		expiry:      expiry,
		logger:      l,
	}
}

// Fingerprint of a bearer string. The raw token never hits the database
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Add revokes the token. Once Add returns the token must fail every
// subsequent verification
func (b *Blacklist) Add(ctx context.Context, token string, userID uuid.UUID, reason string) error {
	expiresAt, ok := b.expiry(token)
	if !ok {
		expiresAt = time.Now().Add(b.fallbackTTL)
	}

	err := b.store.Blacklist().Add(ctx, models.BlacklistedToken{
		Fingerprint: Fingerprint(token),
		UserID:      userID,
		Reason:      reason,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return fmt.Errorf("error while blacklisting token. Err: %w", err)
	}

	return nil
}

func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	listed, err := b.store.Blacklist().IsListed(ctx, Fingerprint(token))
	if err != nil {
		return false, fmt.Errorf("error while checking blacklist. Err: %w", err)
	}

	return listed, nil
}

// RunSweeper periodically drops expired blacklist entries and expired
// password reset tokens. Blocks until ctx is done. Sweep failures are
// logged and never fatal
func (b *Blacklist) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sweep(ctx)
		}
	}
}

func (b *Blacklist) sweep(ctx context.Context) {
	now := time.Now()

	removed, err := b.store.Blacklist().DeleteExpired(ctx, now)
	if err != nil {
		b.logger.Error("blacklist sweep failed", "error", err)
	} else if removed > 0 {
		b.logger.Info("swept expired blacklist entries", "count", removed)
	}

	removed, err = b.store.ResetToken().DeleteExpired(ctx, now)
	if err != nil {
		b.logger.Error("reset token sweep failed", "error", err)
	} else if removed > 0 {
		b.logger.Info("swept expired reset tokens", "count", removed)
	}
}
