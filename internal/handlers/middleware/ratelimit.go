package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openfield/identity/internal/handlers/render"
	"github.com/openfield/identity/internal/logger"
)

type RateLimitConfig struct {
	// Bucket capacity and refill rate
	Capacity     int64
	RefillTokens int64
	RefillEvery  time.Duration

	// How long an idle bucket lives in redis
	TTL time.Duration
}

func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Capacity:     10,
		RefillTokens: 1,
		RefillEvery:  3 * time.Second,
		TTL:          10 * time.Minute,
	}
}

// Token bucket state lives in a redis hash so limits hold across
// replicas. Refill and take happen atomically inside the script
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + (intervals * refill_tokens))
        last_refill = last_refill + (intervals * interval_ms)
    end
end

local allowed = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return allowed
`)

// RateLimitMiddleware applies a per-client token bucket to the wrapped
// route. With a nil redis client it degrades to a pass-through, and any
// redis error fails open: losing rate limiting must not take the
// endpoint down with it
func RateLimitMiddleware(rdb *redis.Client, cfg RateLimitConfig, l logger.Logger) func(http.Handler) http.Handler {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	if rdb == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:%s:%s", r.URL.Path, clientIP(r))

			allowed, err := bucketScript.Run(r.Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillEvery.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64()
			if err != nil {
				l.Warn("rate limiter unavailable, failing open", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if allowed != 1 {
				render.ServiceError(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
