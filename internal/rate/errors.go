package rate

import "errors"

var (
	// ErrRateLimited is returned by Limiter.Check when the window budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps counter store failures.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
