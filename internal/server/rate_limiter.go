// Package server implements per-connection message rate limiting that
// protects the hub from a single flooding client.
package server

import (
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// messageLimiter wraps a token bucket with an injectable clock so tests can
// advance time deterministically.
type messageLimiter struct {
	limiter *rate.Limiter
	clock   clockwork.Clock
}

// newMessageLimiter builds a limiter allowing perSecond messages with the
// given burst. A non-positive rate disables limiting and returns nil.
func newMessageLimiter(perSecond float64, burst int) *messageLimiter {
	return newMessageLimiterWithClock(perSecond, burst, clockwork.NewRealClock())
}

func newMessageLimiterWithClock(perSecond float64, burst int, clock clockwork.Clock) *messageLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	return &messageLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		clock:   clock,
	}
}

func (l *messageLimiter) allow() bool {
	return l.limiter.AllowN(l.clock.Now(), 1)
}
