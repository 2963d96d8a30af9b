package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/MrEthical07/gatekeeper"
)

// IdentityFunc picks the rate limit identity for a request.
type IdentityFunc func(r *http.Request) string

// IdentityByClientIP keys requests by the IP recorded by ClientMetadata.
func IdentityByClientIP(r *http.Request) string {
	if ip := gatekeeper.ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return remoteHost(r.RemoteAddr)
}

// IdentityByAccount keys authenticated requests by account and falls back to the
// client IP.
func IdentityByAccount(r *http.Request) string {
	if res, ok := AuthResultFromContext(r.Context()); ok {
		return "account:" + res.AccountID
	}
	return IdentityByClientIP(r)
}

// RateLimit applies the engine's policy for route. A nil identity keys by client IP.
func RateLimit(engine *gatekeeper.Engine, route string, identity IdentityFunc, onError ErrorHandler) func(http.Handler) http.Handler {
	onError = orDefault(onError)
	if identity == nil {
		identity = IdentityByClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := engine.CheckRateLimit(r.Context(), identity(r), route); err != nil {
				var rl *gatekeeper.RateLimitError
				if errors.As(err, &rl) {
					setRetryAfter(w, rl)
				}
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// setRetryAfter writes whole seconds, rounded up, never below one.
func setRetryAfter(w http.ResponseWriter, rl *gatekeeper.RateLimitError) {
	secs := int64(math.Ceil(rl.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
}
