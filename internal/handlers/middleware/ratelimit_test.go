package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/openfield/identity/internal/testutil"
)

func TestRateLimitMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("nil client passes everything through", func(t *testing.T) {
		middleware := RateLimitMiddleware(nil, DefaultRateLimit(), nil)

		srv := httptest.NewServer(middleware(okHandler))
		defer srv.Close()

		for range 20 {
			resp, err := http.Get(srv.URL)
			require.NoError(t, err)
			_ = resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}
	})

	t.Run("exhausted bucket denies with 429", func(t *testing.T) {
		rd := testutil.StartRedisContainer(t)
		t.Cleanup(rd.Terminate)

		cfg := RateLimitConfig{
			Capacity:     3,
			RefillTokens: 1,
			RefillEvery:  time.Hour,
			TTL:          time.Minute,
		}
		middleware := RateLimitMiddleware(rd.Client, cfg, nil)

		srv := httptest.NewServer(middleware(okHandler))
		defer srv.Close()

		for i := range cfg.Capacity {
			resp, err := http.Get(srv.URL)
			require.NoError(t, err)
			_ = resp.Body.Close()
			require.Equalf(t, http.StatusOK, resp.StatusCode, "request %d should still have a token", i+1)
		}

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("tokens come back after the refill interval", func(t *testing.T) {
		rd := testutil.StartRedisContainer(t)
		t.Cleanup(rd.Terminate)

		cfg := RateLimitConfig{
			Capacity:     1,
			RefillTokens: 1,
			RefillEvery:  200 * time.Millisecond,
			TTL:          time.Minute,
		}
		middleware := RateLimitMiddleware(rd.Client, cfg, nil)

		srv := httptest.NewServer(middleware(okHandler))
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = http.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

		time.Sleep(2 * cfg.RefillEvery)

		resp, err = http.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, "bucket should refill over time")
	})

	t.Run("unreachable redis fails open", func(t *testing.T) {
		// Nothing listens here, every script call errors out
		rdb := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
		})
		defer rdb.Close() // nolint:errcheck

		middleware := RateLimitMiddleware(rdb, DefaultRateLimit(), nil)

		srv := httptest.NewServer(middleware(okHandler))
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, "losing the limiter must not take the endpoint down")
	})
}
