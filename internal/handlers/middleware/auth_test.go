package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/handlers/userctx"
	"github.com/openfield/identity/internal/models"
)

// Allow to use a function as access validator
type validateFunc func(ctx context.Context, access string) (models.User, error)

func (f validateFunc) ValidateAccess(ctx context.Context, access string) (models.User, error) {
	return f(ctx, access)
}

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that echoes the email of the context user.
	// Middleware either sets the user or writes the error itself
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(user.Email))
		require.NoError(t, err, "should write email to response")
	})

	get := func(t *testing.T, url string, bearer string) (*http.Response, string) {
		t.Helper()

		req, err := http.NewRequest(http.MethodGet, url+"/test", nil)
		require.NoError(t, err)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return resp, string(body)
	}

	t.Run("auth ok", func(t *testing.T) {
		middleware := AuthMiddleware(validateFunc(func(ctx context.Context, access string) (models.User, error) {
			require.Equal(t, "valid-token", access)
			return models.User{ID: uuid.New(), Email: "test@example.com"}, nil
		}), nil)

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, body := get(t, srv.URL, "valid-token")

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", body)
		require.Equal(t, "test@example.com", body, "should return email in response")
	})

	t.Run("missing header", func(t *testing.T) {
		middleware := AuthMiddleware(validateFunc(func(ctx context.Context, access string) (models.User, error) {
			t.Fatal("validator must not be called without a token")
			return models.User{}, nil
		}), nil)

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, body := get(t, srv.URL, "")

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.JSONEq(t,
			`{
				"error": "service_error",
				"message": "Unauthorized"
			}`,
			body,
		)
	})

	t.Run("invalid token", func(t *testing.T) {
		middleware := AuthMiddleware(validateFunc(func(ctx context.Context, access string) (models.User, error) {
			return models.User{}, apperrors.ErrTokenMalformed
		}), nil)

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, body := get(t, srv.URL, "garbage")

		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "Resp: %s", body)
		require.Contains(t, body, "Unauthorized", "exact failure reason must not leak")
	})

	t.Run("blocked user", func(t *testing.T) {
		middleware := AuthMiddleware(validateFunc(func(ctx context.Context, access string) (models.User, error) {
			return models.User{}, apperrors.ErrUserBlocked
		}), nil)

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, body := get(t, srv.URL, "blocked-users-token")

		require.Equalf(t, http.StatusForbidden, resp.StatusCode, "Resp: %s", body)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "ok", header: "Bearer some-token", want: "some-token"},
		{name: "case insensitive scheme", header: "bearer some-token", want: "some-token"},
		{name: "missing header", header: "", want: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			require.Equal(t, tt.want, BearerToken(r))
		})
	}
}

func TestRequireRole(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(t *testing.T, user *models.User, roles ...string) *http.Response {
		t.Helper()

		var h http.Handler = RequireRole(roles...)(okHandler)
		if user != nil {
			inner := h
			h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				inner.ServeHTTP(w, r.WithContext(userctx.NewContext(r.Context(), *user)))
			})
		}

		srv := httptest.NewServer(h)
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		return resp
	}

	t.Run("role present", func(t *testing.T) {
		u := models.User{Roles: []string{models.RoleUser, models.RoleAdmin}}

		resp := serve(t, &u, models.RoleAdmin)

		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("any of several roles", func(t *testing.T) {
		u := models.User{Roles: []string{models.RoleManager}}

		resp := serve(t, &u, models.RoleAdmin, models.RoleManager)

		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("role missing", func(t *testing.T) {
		u := models.User{Roles: []string{models.RoleUser}}

		resp := serve(t, &u, models.RoleAdmin)

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("no user in context", func(t *testing.T) {
		resp := serve(t, nil, models.RoleAdmin)

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
