package rate

import (
	"context"
	"time"
)

// Policy is a fixed-window budget: at most Limit hits per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter applies policies to keys on top of a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

// New returns a Limiter. A nil now defaults to time.Now.
func New(store Store, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, now: now}
}

// Key joins identity and route into a counter key.
func Key(identity, route string) string {
	return route + "|" + identity
}

// Allow records a hit on key and reports whether it fits inside p. A policy with a
// non-positive limit or window always allows.
func (l *Limiter) Allow(ctx context.Context, key string, p Policy) (Decision, error) {
	if p.Limit <= 0 || p.Window <= 0 {
		return Decision{Allowed: true, Limit: p.Limit}, nil
	}

	count, resetAt, err := l.store.Hit(ctx, key, p.Window)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Limit: p.Limit, ResetAt: resetAt}
	if count <= int64(p.Limit) {
		d.Allowed = true
		d.Remaining = p.Limit - int(count)
		return d, nil
	}

	d.RetryAfter = resetAt.Sub(l.now())
	if d.RetryAfter < time.Second {
		d.RetryAfter = time.Second
	}
	return d, nil
}

// Check is Allow returning ErrRateLimited on rejection.
func (l *Limiter) Check(ctx context.Context, key string, p Policy) (Decision, error) {
	d, err := l.Allow(ctx, key, p)
	if err != nil {
		return d, err
	}
	if !d.Allowed {
		return d, ErrRateLimited
	}
	return d, nil
}
