// Package ratelimit wraps golang.org/x/time/rate behind an optional limiter:
// a non-positive rate disables throttling entirely, so callers never need a
// conditional around the limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound API requests to a maximum rate per second.
// A disabled limiter (rate <= 0) never blocks and never denies.
type Limiter struct {
	limiter *rate.Limiter
	rps     float64
}

// New creates a limiter allowing rps requests per second with a burst of 1.
// rps <= 0 returns a disabled limiter.
func New(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		rps:     rps,
	}
}

// Enabled reports whether rate limiting is active.
func (l *Limiter) Enabled() bool {
	return l.limiter != nil
}

// RPS returns the configured requests-per-second rate, 0 when disabled.
func (l *Limiter) RPS() float64 {
	return l.rps
}

// Wait blocks until the next request is allowed or the context is done.
// Disabled limiters return immediately.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now without waiting.
func (l *Limiter) Allow() bool {
	if l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

// Reserve returns a reservation for the next request, or nil when the
// limiter is disabled (unlimited rate).
func (l *Limiter) Reserve() *rate.Reservation {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Reserve()
}

// String describes the limiter configuration for logging.
func (l *Limiter) String() string {
	if l.limiter == nil {
		return "rate limiting disabled"
	}
	if l.rps < 1 {
		interval := time.Duration(float64(time.Second) / l.rps)
		return fmt.Sprintf("%.2f rps (1 request per %s)", l.rps, interval)
	}
	return fmt.Sprintf("%.2f rps", l.rps)
}
