// Package memory provides an in-process token bucket limiter
package memory

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/teoh/bintangbuddy/internal/config"
)

// Limiter wraps a token bucket shared by all workers of this process
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter creates a limiter; an RPS of zero or less never blocks
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Unlimited reports whether the limiter never blocks
func (l *Limiter) Unlimited() bool {
	return l.bucket.Limit() == rate.Inf
}
