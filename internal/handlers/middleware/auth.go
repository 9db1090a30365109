package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/handlers/render"
	"github.com/openfield/identity/internal/handlers/userctx"
	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/models"
)

type authService interface {
	ValidateAccess(ctx context.Context, access string) (models.User, error)
}

// BearerToken extracts the token from an Authorization header.
// Empty string when the header is missing or not a Bearer scheme
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// AuthMiddleware gates authenticated routes: it validates the access
// token and injects the resolved user into the request context.
// Every token failure maps to 401 with one generic message, the exact
// reason goes to the log only. Blocked accounts get 403
func AuthMiddleware(as authService, l logger.Logger) func(http.Handler) http.Handler {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := as.ValidateAccess(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, apperrors.ErrUserBlocked):
				render.ServiceError(w, "User is blocked", http.StatusForbidden)
				return
			default:
				l.Debug("access token rejected", "uri", r.RequestURI, "reason", err)
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.NewContext(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
