package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/handlers/render"
	"github.com/openfield/identity/internal/handlers/userctx"
	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/models"
)

type notifyService interface {
	Create(ctx context.Context, userID uuid.UUID, message string) (models.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkRead(ctx context.Context, id int64, userID uuid.UUID) error
}

type NotificationHandler struct {
	notify notifyService
	logger logger.Logger
}

func NewNotification(notify notifyService, l logger.Logger) *NotificationHandler {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &NotificationHandler{notify: notify, logger: l}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	notifications, err := h.notify.ListForUser(r.Context(), u.ID)
	if err != nil {
		h.logger.Error("list notifications failed", "error", err, "user_id", u.ID)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	render.JSON(w, notifications)
}

// Create targets another user and is for staff only, the route is
// gated by role middleware
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	type CreateRequest struct {
		UserID  uuid.UUID `json:"userId" validate:"required"`
		Message string    `json:"message" validate:"required,min=1,max=1000"`
	}

	data, err := render.BindAndValidate[CreateRequest](w, r)
	if err != nil {
		return
	}

	notification, err := h.notify.Create(r.Context(), data.UserID, data.Message)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			h.logger.Error("create notification failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSONWithStatus(w, notification, http.StatusCreated)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	type MarkReadResponse struct {
		Message string `json:"message"`
	}

	u, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		render.ServiceError(w, "Invalid notification id", http.StatusBadRequest)
		return
	}

	err = h.notify.MarkRead(r.Context(), id, u.ID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotificationNotFound):
			render.ServiceError(w, "Notification not found", http.StatusNotFound)
		default:
			h.logger.Error("mark notification read failed", "error", err, "user_id", u.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, MarkReadResponse{Message: "Notification marked as read"})
}
