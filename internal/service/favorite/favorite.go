package favorite

import (
	"context"

	"github.com/google/uuid"

	"github.com/openfield/identity/internal/models"
	"github.com/openfield/identity/internal/repository"
)

// Service manages per-user field bookmarks
type Service struct {
	store repository.Storage
}

func NewService(store repository.Storage) *Service {
	return &Service{store: store}
}

func (s *Service) Add(ctx context.Context, userID uuid.UUID, fieldID int64) (models.FavoriteField, error) {
	return s.store.Favorite().Add(ctx, userID, fieldID)
}

func (s *Service) Remove(ctx context.Context, userID uuid.UUID, fieldID int64) error {
	return s.store.Favorite().Remove(ctx, userID, fieldID)
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.FavoriteField, error) {
	return s.store.Favorite().ListByUser(ctx, userID)
}
