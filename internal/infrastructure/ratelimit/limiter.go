package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound calls to the messaging platform. It is a
// token bucket: Burst tokens capacity, one token refilled every
// MinInterval. A single instance is shared by every channel-processing
// path; it is safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter with the given minimum inter-call delay and
// burst allowance. A burst below 1 is clamped to 1.
func New(minInterval time.Duration, burst int) *Limiter {
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(minInterval), burst),
	}
}

// Acquire blocks until the next outbound call may be issued. It only
// fails when ctx is cancelled; under sustained overload it simply
// delays longer.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
