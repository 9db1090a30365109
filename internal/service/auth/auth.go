package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/models"
	"github.com/openfield/identity/internal/repository"
	"github.com/openfield/identity/internal/service/auth/tokenmanager"
)

type Config struct {
	// Hasher to use during registration or login
	// BcryptHasher is used when not set
	Hasher PasswordHasher

	Logger logger.Logger
}

// AuthService composes hashing, token issuance, the blacklist and the
// user store into the login/registration/refresh/logout lifecycle
type AuthService struct {
	store     repository.Storage
	tokens    *tokenmanager.TokenManager
	blacklist *Blacklist
	hasher    PasswordHasher
	logger    logger.Logger

	// Hash compared against when the email is unknown, so lookup misses
	// cost the same as password mismatches
	dummyHash string
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, blacklist *Blacklist, store repository.Storage) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	l := cfg.Logger
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	if tokens == nil || blacklist == nil || store == nil {
		return nil, errors.New("token manager, blacklist and storage must not be nil")
	}

	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("hasher self check failed. Err: %w", err)
	}

	return &AuthService{
		store:     store,
		tokens:    tokens,
		blacklist: blacklist,
		hasher:    hasher,
		logger:    l,
		dummyHash: dummy,
	}, nil
}

// NormalizeEmail is the single place email case policy lives
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the user with the default role.
// The store's unique constraint is the final arbiter under concurrent
// registration, its violation surfaces as apperrors.ErrEmailTaken
func (s *AuthService) Register(ctx context.Context, email string, password string, name string) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err = s.store.User().Create(ctx, repository.CreateUserParams{
		Email:          NormalizeEmail(email),
		Name:           name,
		HashedPassword: hash,
		Roles:          []string{models.RoleUser},
	})
	if err != nil {
		return user, err
	}

	return user, nil
}

// Login checks credentials and mints a fresh token pair.
// Unknown email and wrong password fail identically
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.store.User().GetByEmail(ctx, NormalizeEmail(email))
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		// Burn comparable time before failing
		_ = s.hasher.Compare(s.dummyHash, password)
		return user, pair, apperrors.ErrInvalidCredentials
	case err != nil:
		return user, pair, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return user, pair, apperrors.ErrInvalidCredentials
	}

	if user.IsBlocked {
		return user, pair, apperrors.ErrUserBlocked
	}

	pair, err = s.tokens.IssuePair(user)
	if err != nil {
		return user, pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return user, pair, nil
}

// Refresh rotates a valid refresh token into a brand new pair.
// The presented token is blacklisted so it can't be replayed
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	claims, err := s.tokens.Parse(refresh, tokenmanager.ClassRefresh)
	if err != nil {
		return pair, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, refresh)
	if err != nil {
		return pair, err
	}
	if revoked {
		return pair, apperrors.ErrTokenRevoked
	}

	// Reload the user to catch blocking or revocation that happened
	// after the token was issued
	user, err := s.userForClaims(ctx, claims)
	if err != nil {
		return pair, err
	}

	pair, err = s.tokens.IssuePair(user)
	if err != nil {
		return pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	if err := s.blacklist.Add(ctx, refresh, user.ID, RevokeReasonRotation); err != nil {
		return pair, err
	}

	return pair, nil
}

// Logout blacklists every presented token. Idempotent
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, tokens ...string) error {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if err := s.blacklist.Add(ctx, token, userID, RevokeReasonLogout); err != nil {
			return err
		}
	}

	return nil
}

// LogoutAll revokes every outstanding token of the user at once by
// bumping the token version embedded in future verifications
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.User().BumpTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("error while revoking user sessions. Err: %w", err)
	}

	return nil
}

// ValidateAccess is the gate in front of every authenticated request:
// signature+expiry check, blacklist check and a fresh user load so
// blocking and logout-all take effect immediately
func (s *AuthService) ValidateAccess(ctx context.Context, access string) (models.User, error) {
	var user models.User

	claims, err := s.tokens.Parse(access, tokenmanager.ClassAccess)
	if err != nil {
		return user, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, access)
	if err != nil {
		return user, err
	}
	if revoked {
		return user, apperrors.ErrTokenRevoked
	}

	return s.userForClaims(ctx, claims)
}

// ChangePassword requires the current password before permitting the
// change. Sessions stay alive: the owner changed it knowingly
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword string, newPassword string) error {
	user, err := s.store.User().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.HashedPassword, currentPassword); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password. Err: %w", err)
	}

	if err := s.store.User().SetPassword(ctx, userID, hash, false); err != nil {
		return err
	}

	return nil
}

func (s *AuthService) userForClaims(ctx context.Context, claims tokenmanager.Claims) (models.User, error) {
	user, err := s.store.User().GetByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return user, apperrors.ErrTokenRevoked
	case err != nil:
		return user, err
	}

	if user.IsBlocked {
		return user, apperrors.ErrUserBlocked
	}

	if claims.TokenVersion != user.TokenVersion {
		return user, apperrors.ErrTokenRevoked
	}

	return user, nil
}
