package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/handlers/middleware"
	"github.com/openfield/identity/internal/handlers/render"
	"github.com/openfield/identity/internal/handlers/userctx"
	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/models"
)

type authService interface {
	Register(ctx context.Context, email string, password string, name string) (models.User, error)
	Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error)
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID, tokens ...string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword string, newPassword string) error
}

type resetService interface {
	Request(ctx context.Context, email string) error
	Reset(ctx context.Context, token string, newPassword string) error
}

type AuthHandler struct {
	auth   authService
	reset  resetService
	logger logger.Logger
}

func NewAuth(auth authService, reset resetService, l logger.Logger) *AuthHandler {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &AuthHandler{
		auth:   auth,
		reset:  reset,
		logger: l,
	}
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func pairResponse(pair models.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,min=8,max=72"`
		Name     string `json:"name" validate:"required,min=1,max=100"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	user, err := h.auth.Register(r.Context(), data.Email, data.Password, data.Name)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEmailTaken):
			render.ServiceError(w, "Email is already registered", http.StatusConflict)
		default:
			h.logger.Error("register failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSONWithStatus(w, user.Public(), http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	type LoginResponse struct {
		User         models.PublicUser `json:"user"`
		AccessToken  string            `json:"accessToken"`
		RefreshToken string            `json:"refreshToken"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	user, pair, err := h.auth.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid email or password", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrUserBlocked):
			render.ServiceError(w, "User is blocked", http.StatusForbidden)
		default:
			h.logger.Error("login failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, LoginResponse{
		User:         user.Public(),
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}

	data, err := render.BindAndValidate[RefreshRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), data.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserBlocked):
			render.ServiceError(w, "User is blocked", http.StatusForbidden)
		case isTokenError(err):
			h.logger.Debug("refresh rejected", "reason", err)
			render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
		default:
			h.logger.Error("refresh failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, pairResponse(pair))
}

// Logout revokes the presented access token and, when given, the
// refresh token from the body. Requires authentication so the access
// token is known valid, and always succeeds for valid callers
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	type LogoutRequest struct {
		RefreshToken string `json:"refreshToken"`
	}
	type LogoutResponse struct {
		Message string `json:"message"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tokens := []string{middleware.BearerToken(r)}

	// Body is optional here. A missing or malformed body still logs
	// out the access token
	if data, err := bindOptional[LogoutRequest](r); err == nil && data.RefreshToken != "" {
		tokens = append(tokens, data.RefreshToken)
	}

	if err := h.auth.Logout(r.Context(), user.ID, tokens...); err != nil {
		h.logger.Error("logout failed", "error", err, "user_id", user.ID)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, LogoutResponse{Message: "Logged out"})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	type LogoutResponse struct {
		Message string `json:"message"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.auth.LogoutAll(r.Context(), user.ID); err != nil {
		h.logger.Error("logout all failed", "error", err, "user_id", user.ID)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, LogoutResponse{Message: "Logged out everywhere"})
}

// ForgotPassword answers 200 no matter whether the email is known.
// The response must not leak account existence
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	type ForgotRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
	type ForgotResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ForgotRequest](w, r)
	if err != nil {
		return
	}

	if err := h.reset.Request(r.Context(), data.Email); err != nil {
		h.logger.Error("password reset request failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, ForgotResponse{Message: "If the email is registered, a reset link has been sent"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	type ResetRequest struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
	}
	type ResetResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ResetRequest](w, r)
	if err != nil {
		return
	}

	err = h.reset.Reset(r.Context(), data.Token, data.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrResetTokenInvalid),
			errors.Is(err, apperrors.ErrResetTokenUsed),
			errors.Is(err, apperrors.ErrResetTokenExpired):
			render.ServiceError(w, "Reset token is invalid or expired", http.StatusBadRequest)
		default:
			h.logger.Error("password reset failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ResetResponse{Message: "Password has been reset"})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	type ChangeRequest struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
	}
	type ChangeResponse struct {
		Message string `json:"message"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := render.BindAndValidate[ChangeRequest](w, r)
	if err != nil {
		return
	}

	err = h.auth.ChangePassword(r.Context(), user.ID, data.CurrentPassword, data.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Current password is incorrect", http.StatusUnauthorized)
		default:
			h.logger.Error("change password failed", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ChangeResponse{Message: "Password changed"})
}

// bindOptional decodes a body if one is present but never writes an
// error response
func bindOptional[T any](r *http.Request) (T, error) {
	var value T
	err := json.NewDecoder(r.Body).Decode(&value)
	return value, err
}

func isTokenError(err error) bool {
	return errors.Is(err, apperrors.ErrTokenMalformed) ||
		errors.Is(err, apperrors.ErrTokenExpired) ||
		errors.Is(err, apperrors.ErrTokenRevoked) ||
		errors.Is(err, apperrors.ErrTokenWrongClass)
}
