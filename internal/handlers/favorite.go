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

type favoriteService interface {
	Add(ctx context.Context, userID uuid.UUID, fieldID int64) (models.FavoriteField, error)
	Remove(ctx context.Context, userID uuid.UUID, fieldID int64) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.FavoriteField, error)
}

type FavoriteHandler struct {
	favorites favoriteService
	logger    logger.Logger
}

func NewFavorite(favorites favoriteService, l logger.Logger) *FavoriteHandler {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &FavoriteHandler{favorites: favorites, logger: l}
}

func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	favorites, err := h.favorites.ListForUser(r.Context(), u.ID)
	if err != nil {
		h.logger.Error("list favorites failed", "error", err, "user_id", u.ID)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if favorites == nil {
		favorites = []models.FavoriteField{}
	}
	render.JSON(w, favorites)
}

func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	type AddRequest struct {
		FieldID int64 `json:"fieldId" validate:"required,gt=0"`
	}

	u, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := render.BindAndValidate[AddRequest](w, r)
	if err != nil {
		return
	}

	favorite, err := h.favorites.Add(r.Context(), u.ID, data.FieldID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrFavoriteExists):
			render.ServiceError(w, "Field is already in favorites", http.StatusConflict)
		default:
			h.logger.Error("add favorite failed", "error", err, "user_id", u.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSONWithStatus(w, favorite, http.StatusCreated)
}

func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	u, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fieldID, err := strconv.ParseInt(r.PathValue("fieldID"), 10, 64)
	if err != nil {
		render.ServiceError(w, "Invalid field id", http.StatusBadRequest)
		return
	}

	err = h.favorites.Remove(r.Context(), u.ID, fieldID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrFavoriteNotFound):
			render.ServiceError(w, "Favorite not found", http.StatusNotFound)
		default:
			h.logger.Error("remove favorite failed", "error", err, "user_id", u.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
