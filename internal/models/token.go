package models

import (
	"time"

	"github.com/google/uuid"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Pair of bearer tokens returned to the user on authentication
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// BlacklistedToken is a revocation record. Once a row exists and is not
// past ExpiresAt the matching token must be rejected even though its
// signature and embedded expiry are still valid.
type BlacklistedToken struct {
	ID uuid.UUID

	// SHA-256 of the bearer string, hex encoded. The raw token is
	// never persisted
	Fingerprint string

	UserID    uuid.UUID
	Reason    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PasswordResetToken is a one-time credential recovery artifact.
// Usable at most once and only before ExpiresAt.
type PasswordResetToken struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
