package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultMinInterval is the default gap enforced between requests to
// the same domain. One second is conservative enough to stay polite
// on every platform in the default template set.
const DefaultMinInterval = 1 * time.Second

// Limiter enforces a minimum interval between successive acquisitions
// for the same domain. Acquire blocks the caller until the interval
// since the previous Acquire *returned* for that domain has elapsed,
// so overlapping callers for one domain serialize correctly.
//
// The limiter is safe for concurrent use by multiple workers.
type Limiter struct {
	// minInterval is the enforced gap per domain.
	minInterval time.Duration

	// mu guards the domains map. A single lock is sufficient: the
	// critical section only reserves a slot; waiting happens outside it.
	mu sync.Mutex

	// domains maps a domain to the earliest time the next Acquire for
	// it may return.
	domains map[string]time.Time

	// now is the clock, replaceable in tests.
	now func() time.Time

	// sleep waits for the given duration, replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithMinInterval sets the enforced gap between requests per domain.
func WithMinInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d >= 0 {
			l.minInterval = d
		}
	}
}

// New creates a Limiter with the given options.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		minInterval: DefaultMinInterval,
		domains:     make(map[string]time.Time),
		now:         time.Now,
		sleep:       sleepCtx,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Acquire blocks until at least the minimum interval has elapsed since
// the last Acquire returned for the same domain. It returns early with
// ctx.Err() if the context is cancelled while waiting; in that case the
// caller's slot is still consumed, which keeps later callers spaced.
func (l *Limiter) Acquire(ctx context.Context, domain string) error {
	l.mu.Lock()
	now := l.now()

	// Reserve this caller's release time. If the domain is free the
	// caller may proceed immediately; otherwise it queues behind the
	// previously reserved slot.
	next, ok := l.domains[domain]
	if !ok || next.Before(now) {
		next = now
	}
	l.domains[domain] = next.Add(l.minInterval)
	l.mu.Unlock()

	if wait := next.Sub(now); wait > 0 {
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}

	return nil
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
