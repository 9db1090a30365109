package apperrors

import (
	"errors"
)

var (
	ErrEmailTaken   = errors.New("email is already registered")
	ErrUserNotFound = errors.New("user not found")
	ErrUserBlocked  = errors.New("user is blocked")

	// Returned for unknown email and wrong password alike, so callers
	// can't tell which part of the credentials failed
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenMalformed  = errors.New("token is malformed or badly signed")
	ErrTokenExpired    = errors.New("token is expired")
	ErrTokenRevoked    = errors.New("token is revoked")
	ErrTokenWrongClass = errors.New("token presented with wrong class")

	ErrResetTokenInvalid = errors.New("password reset token not found")
	ErrResetTokenUsed    = errors.New("password reset token is already used")
	ErrResetTokenExpired = errors.New("password reset token is expired")

	ErrFavoriteExists   = errors.New("field is already in favorites")
	ErrFavoriteNotFound = errors.New("favorite field not found")

	ErrNotificationNotFound = errors.New("notification not found")
)
