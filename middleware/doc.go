// Package middleware adapts the gatekeeper Engine to net/http.
//
// # Middleware
//
//   - [Guard] authenticates the bearer token and stores the [gatekeeper.AuthResult]
//     in the request context.
//   - [RequireRole] rejects authenticated callers without one of the given roles.
//   - [RateLimit] counts requests per caller and route and answers 429 with a
//     Retry-After header once the route policy is exhausted.
//   - [WAF] scans query strings, JSON bodies and form bodies for injection
//     patterns.
//   - [ClientMetadata] records the caller's IP and User-Agent for session and
//     audit metadata.
//
// Every middleware that can reject takes an [ErrorHandler]; nil selects a plain
// text response with the status from [StatusFor].
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the store.
//   - Name the matched pattern in a WAF rejection.
package middleware
