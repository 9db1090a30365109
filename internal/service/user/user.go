package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/openfield/identity/internal/models"
	"github.com/openfield/identity/internal/repository"
	"github.com/openfield/identity/internal/service/auth"
)

var knownRoles = map[string]bool{
	models.RoleUser:    true,
	models.RoleAdmin:   true,
	models.RoleManager: true,
}

// UserService covers the administrative side of user records:
// listing, profile updates, blocking and role management
type UserService struct {
	store repository.Storage
}

func NewService(store repository.Storage) *UserService {
	return &UserService{store: store}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.store.User().List(ctx)
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.store.User().GetByID(ctx, id)
}

type UpdateParams struct {
	Email *string
	Name  *string
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, arg UpdateParams) (models.User, error) {
	if arg.Email != nil {
		normalized := auth.NormalizeEmail(*arg.Email)
		arg.Email = &normalized
	}

	return s.store.User().Update(ctx, id, repository.UpdateUserParams{
		Email: arg.Email,
		Name:  arg.Name,
	})
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.User().Delete(ctx, id)
}

// Block shuts the user out immediately: every auth gate reloads the
// user record, so no new login, refresh or authenticated call passes
func (s *UserService) Block(ctx context.Context, id uuid.UUID) error {
	return s.store.User().SetBlocked(ctx, id, true)
}

func (s *UserService) Unblock(ctx context.Context, id uuid.UUID) error {
	return s.store.User().SetBlocked(ctx, id, false)
}

// SetRoles replaces the role set. Roles must be known tags and the set
// must not be empty
func (s *UserService) SetRoles(ctx context.Context, id uuid.UUID, roles []string) error {
	if len(roles) == 0 {
		return errors.New("roles must not be empty")
	}

	for _, role := range roles {
		if !knownRoles[role] {
			return fmt.Errorf("unknown role %q", role)
		}
	}

	return s.store.User().SetRoles(ctx, id, roles)
}
