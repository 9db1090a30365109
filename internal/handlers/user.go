package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/handlers/render"
	"github.com/openfield/identity/internal/handlers/userctx"
	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/models"
	"github.com/openfield/identity/internal/service/user"
)

type userService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id uuid.UUID) (models.User, error)
	Update(ctx context.Context, id uuid.UUID, arg user.UpdateParams) (models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Block(ctx context.Context, id uuid.UUID) error
	Unblock(ctx context.Context, id uuid.UUID) error
	SetRoles(ctx context.Context, id uuid.UUID, roles []string) error
}

type UserHandler struct {
	users  userService
	logger logger.Logger
}

func NewUser(users userService, l logger.Logger) *UserHandler {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &UserHandler{users: users, logger: l}
}

// Me returns the profile of the authenticated caller
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	render.JSON(w, u.Public())
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	type UpdateRequest struct {
		Email *string `json:"email" validate:"omitempty,email,max=254"`
		Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	}

	u, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := render.BindAndValidate[UpdateRequest](w, r)
	if err != nil {
		return
	}

	updated, err := h.users.Update(r.Context(), u.ID, user.UpdateParams{
		Email: data.Email,
		Name:  data.Name,
	})
	if err != nil {
		h.writeError(w, err, "update profile failed")
		return
	}

	render.JSON(w, updated.Public())
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.writeError(w, err, "list users failed")
		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}

	render.JSON(w, public)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get user failed")
		return
	}

	render.JSON(w, u.Public())
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	type UpdateRequest struct {
		Email *string `json:"email" validate:"omitempty,email,max=254"`
		Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	}

	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	data, err := render.BindAndValidate[UpdateRequest](w, r)
	if err != nil {
		return
	}

	updated, err := h.users.Update(r.Context(), id, user.UpdateParams{
		Email: data.Email,
		Name:  data.Name,
	})
	if err != nil {
		h.writeError(w, err, "update user failed")
		return
	}

	render.JSON(w, updated.Public())
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.writeError(w, err, "delete user failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

func (h *UserHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *UserHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	type BlockResponse struct {
		Message string `json:"message"`
	}

	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	var err error
	if blocked {
		err = h.users.Block(r.Context(), id)
	} else {
		err = h.users.Unblock(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err, "set blocked failed")
		return
	}

	msg := "User unblocked"
	if blocked {
		msg = "User blocked"
	}
	render.JSON(w, BlockResponse{Message: msg})
}

func (h *UserHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	type RolesRequest struct {
		Roles []string `json:"roles" validate:"required,min=1,dive,oneof=user admin manager"`
	}
	type RolesResponse struct {
		Message string `json:"message"`
	}

	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	data, err := render.BindAndValidate[RolesRequest](w, r)
	if err != nil {
		return
	}

	if err := h.users.SetRoles(r.Context(), id, data.Roles); err != nil {
		h.writeError(w, err, "set roles failed")
		return
	}

	render.JSON(w, RolesResponse{Message: "Roles updated"})
}

func (h *UserHandler) writeError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		render.ServiceError(w, "User not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrEmailTaken):
		render.ServiceError(w, "Email is already registered", http.StatusConflict)
	default:
		h.logger.Error(logMsg, "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// pathUUID parses the {id} path value, answering 400 on garbage
func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
