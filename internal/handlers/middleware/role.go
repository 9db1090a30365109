package middleware

import (
	"net/http"

	"github.com/openfield/identity/internal/handlers/render"
	"github.com/openfield/identity/internal/handlers/userctx"
)

// RequireRole lets the request through when the authenticated user
// carries at least one of the given role tags.
// Must be mounted behind AuthMiddleware
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userctx.FromContext(r.Context())
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			render.ServiceError(w, "Forbidden", http.StatusForbidden)
		})
	}
}
