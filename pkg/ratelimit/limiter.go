// Package ratelimit caps connection attempts per client IP with a Redis fixed window.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "ratelimit:"

// hit increments the counter and opens the window on the first hit in one round trip.
var hit = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

type Limiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	scope  string
	logger *zap.Logger
}

// New returns a limiter allowing limit hits per key per window. scope keeps the
// counters of different endpoints apart.
func New(client redis.Cmdable, scope string, limit int64, window time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{client: client, limit: limit, window: window, scope: scope, logger: logger}
}

// Allow counts one hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := keyPrefix + l.scope + ":" + key

	count, err := hit.Run(ctx, l.client, []string{k}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("count %s: %w", k, err)
	}
	return count <= l.limit, nil
}

// Middleware rejects requests over the limit with 429. Redis errors let the request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		ok, err := l.Allow(r.Context(), ip)
		if err != nil {
			l.logger.Error("Rate limiter unavailable", zap.String("ip", ip), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			l.logger.Warn("Connection rate limit exceeded", zap.String("ip", ip), zap.String("scope", l.scope))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
