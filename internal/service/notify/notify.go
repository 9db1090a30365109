package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/models"
	"github.com/openfield/identity/internal/repository"
)

// EventPublisher pushes notification events to the message broker for
// downstream consumers (push, sms, analytics)
type EventPublisher interface {
	NotificationCreated(ctx context.Context, n models.Notification) error
}

type Config struct {
	Logger logger.Logger
}

type Service struct {
	store  repository.Storage
	events EventPublisher
	logger logger.Logger
}

func NewService(cfg Config, store repository.Storage, events EventPublisher) (*Service, error) {
	if store == nil || events == nil {
		return nil, errors.New("storage and event publisher must not be nil")
	}

	l := cfg.Logger
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		store:  store,
		events: events,
		logger: l,
	}, nil
}

// Create stores the notification and publishes the event.
// Publish failures are logged, the stored row is the source of truth
func (s *Service) Create(ctx context.Context, userID uuid.UUID, message string) (models.Notification, error) {
	n, err := s.store.Notification().Create(ctx, userID, message)
	if err != nil {
		return n, err
	}

	if err := s.events.NotificationCreated(ctx, n); err != nil {
		s.logger.Error("failed to publish notification event", "error", err, "notification_id", n.ID)
	}

	return n, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	return s.store.Notification().ListByUser(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id int64, userID uuid.UUID) error {
	return s.store.Notification().MarkRead(ctx, id, userID)
}
