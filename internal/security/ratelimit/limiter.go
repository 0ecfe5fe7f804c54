package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Counter is the shared counter backend, satisfied by the Redis client
type Counter interface {
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter enforces a fixed-window request budget per tenant. Counters
// live in Redis so the web tier itself stays stateless.
type Limiter struct {
	counter Counter
	maxReqs int
	window  time.Duration
	logger  *slog.Logger
}

// NewLimiter creates a limiter allowing maxRequests per window per tenant
func NewLimiter(counter Counter, maxRequests int, window time.Duration, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{counter: counter, maxReqs: maxRequests, window: window, logger: logger}
}

// Allow reports whether a request for the tenant fits the current
// window. Requests with no tenant context pass, and a counter backend
// failure fails open rather than rejecting traffic.
func (l *Limiter) Allow(ctx context.Context, tenantID string) bool {
	if tenantID == "" {
		return true
	}

	key := fmt.Sprintf("ratelimit:%s:%d", tenantID, time.Now().Unix()/int64(l.window.Seconds()))
	count, err := l.counter.IncrWithExpiry(ctx, key, l.window)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable", slog.String("error", err.Error()))
		return true
	}
	return count <= int64(l.maxReqs)
}
