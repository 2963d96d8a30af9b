package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/gatekeeper"
)

// ErrorHandler renders a rejection. Handlers decide the body; the status should
// follow StatusFor.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type authResultContextKey struct{}
type accessTokenContextKey struct{}

// AuthResultFromContext returns the result stored by Guard.
func AuthResultFromContext(ctx context.Context) (*gatekeeper.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*gatekeeper.AuthResult)
	return res, ok
}

// AccessTokenFromContext returns the raw bearer token accepted by Guard.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenContextKey{}).(string)
	return token, ok
}

// Guard authenticates the request's bearer token with engine.Authenticate.
func Guard(engine *gatekeeper.Engine, onError ErrorHandler) func(http.Handler) http.Handler {
	onError = orDefault(onError)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				onError(w, r, gatekeeper.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				onError(w, r, gatekeeper.ErrTokenMissing)
				return
			}

			res, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			ctx = context.WithValue(ctx, accessTokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// StatusFor maps engine errors to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, gatekeeper.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, gatekeeper.ErrTokenMissing),
		errors.Is(err, gatekeeper.ErrTokenMalformed),
		errors.Is(err, gatekeeper.ErrTokenExpired),
		errors.Is(err, gatekeeper.ErrTokenRevoked),
		errors.Is(err, gatekeeper.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, gatekeeper.ErrAccountSuspended),
		errors.Is(err, gatekeeper.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, gatekeeper.ErrSuspiciousPayload),
		errors.Is(err, gatekeeper.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, gatekeeper.ErrServiceUnavailable),
		errors.Is(err, gatekeeper.ErrEngineNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusFor(err)
	var rl *gatekeeper.RateLimitError
	if errors.As(err, &rl) {
		setRetryAfter(w, rl)
	}
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

func orDefault(h ErrorHandler) ErrorHandler {
	if h == nil {
		return defaultErrorHandler
	}
	return h
}
