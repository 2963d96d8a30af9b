package middleware

import (
	"net/http"

	"github.com/MrEthical07/gatekeeper"
)

// RequireRole must run after Guard. Callers whose role is not listed are
// rejected with gatekeeper.ErrForbidden.
func RequireRole(onError ErrorHandler, roles ...string) func(http.Handler) http.Handler {
	onError = orDefault(onError)
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				onError(w, r, gatekeeper.ErrTokenMissing)
				return
			}
			if _, ok := allowed[res.Role]; !ok {
				onError(w, r, gatekeeper.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
