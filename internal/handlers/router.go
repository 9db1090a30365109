package handlers

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/openfield/identity/internal/handlers/middleware"
	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type accessValidator interface {
	ValidateAccess(ctx context.Context, access string) (models.User, error)
}

type RouterConfig struct {
	Auth          authService
	Validator     accessValidator
	Reset         resetService
	Users         userService
	Favorites     favoriteService
	Notifications notifyService

	// Optional. Nil disables rate limiting
	Redis     *redis.Client
	RateLimit middleware.RateLimitConfig

	Logger logger.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	withAuth := middleware.AuthMiddleware(cfg.Validator, l)
	adminOnly := func(h http.Handler) http.Handler {
		return withAuth(middleware.RequireRole(models.RoleAdmin)(h))
	}
	staffOnly := func(h http.Handler) http.Handler {
		return withAuth(middleware.RequireRole(models.RoleAdmin, models.RoleManager)(h))
	}
	limited := middleware.RateLimitMiddleware(cfg.Redis, cfg.RateLimit, l)

	authHandler := NewAuth(cfg.Auth, cfg.Reset, l)
	userHandler := NewUser(cfg.Users, l)
	favoriteHandler := NewFavorite(cfg.Favorites, l)
	notificationHandler := NewNotification(cfg.Notifications, l)

	mux := http.NewServeMux()

	// Credential endpoints are bucketed per client, the rest are not
	mux.Handle("POST /api/auth/register", limited(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/forgot-password", limited(http.HandlerFunc(authHandler.ForgotPassword)))
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/reset-password", authHandler.ResetPassword)
	mux.Handle("POST /api/auth/logout", withAuth(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("POST /api/auth/logout-all", withAuth(http.HandlerFunc(authHandler.LogoutAll)))
	mux.Handle("POST /api/auth/change-password", withAuth(http.HandlerFunc(authHandler.ChangePassword)))

	mux.Handle("GET /api/users/me", withAuth(http.HandlerFunc(userHandler.Me)))
	mux.Handle("PATCH /api/users/me", withAuth(http.HandlerFunc(userHandler.UpdateMe)))

	mux.Handle("GET /api/users", adminOnly(http.HandlerFunc(userHandler.List)))
	mux.Handle("GET /api/users/{id}", adminOnly(http.HandlerFunc(userHandler.Get)))
	mux.Handle("PATCH /api/users/{id}", adminOnly(http.HandlerFunc(userHandler.Update)))
	mux.Handle("DELETE /api/users/{id}", adminOnly(http.HandlerFunc(userHandler.Delete)))
	mux.Handle("POST /api/users/{id}/block", adminOnly(http.HandlerFunc(userHandler.Block)))
	mux.Handle("POST /api/users/{id}/unblock", adminOnly(http.HandlerFunc(userHandler.Unblock)))
	mux.Handle("PUT /api/users/{id}/roles", adminOnly(http.HandlerFunc(userHandler.SetRoles)))

	mux.Handle("GET /api/favorites", withAuth(http.HandlerFunc(favoriteHandler.List)))
	mux.Handle("POST /api/favorites", withAuth(http.HandlerFunc(favoriteHandler.Add)))
	mux.Handle("DELETE /api/favorites/{fieldID}", withAuth(http.HandlerFunc(favoriteHandler.Remove)))

	mux.Handle("GET /api/notifications", withAuth(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("POST /api/notifications", staffOnly(http.HandlerFunc(notificationHandler.Create)))
	mux.Handle("POST /api/notifications/{id}/read", withAuth(http.HandlerFunc(notificationHandler.MarkRead)))

	return chain(mux,
		middleware.LoggerMiddleware(l),
	)
}
