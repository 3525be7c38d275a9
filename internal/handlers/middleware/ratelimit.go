package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/contactbox/internal/handlers/render"
)

const rateLimitKeyPrefix = "ratelimit"

type RateLimitConfig struct {
	// Requests allowed per window from one client
	MaxRequests int

	// Window length, e.g. time.Minute for a per-minute limit
	Window time.Duration
}

// RateLimitMiddleware enforces a fixed window limit per client IP.
// Counter lives in Redis (INCR sets it, EXPIRE bounds the window), so the
// limit holds across instances sharing the same Redis.
func RateLimitMiddleware(client redis.UniversalClient, cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("%s:%s:%s", rateLimitKeyPrefix, r.URL.Path, clientIP(r))

			count, err := client.Incr(r.Context(), key).Result()
			if err != nil {
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			// First request of the window owns setting the expiry
			if count == 1 {
				if err := client.Expire(r.Context(), key, cfg.Window).Err(); err != nil {
					render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
					return
				}
			}

			if count > int64(cfg.MaxRequests) {
				render.ServiceError(w, "Rate limit exceeded. Try again later", http.StatusTooManyRequests)
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
