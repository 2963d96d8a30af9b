// Package gatekeeper is the trust and access-control core of a web backend: JWT
// access tokens, rotating refresh tokens, a session registry, an access token
// revocation ledger, time-boxed signed download links, email verification and
// password reset, and request-level abuse mitigation.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// gatekeeper is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (LoginResult, AuthResult, MetricsSnapshot, etc.). Persistence, mail and file
// storage are collaborators behind the store, [Mailer] and filestore interfaces. Flow
// orchestration, rate limiting, revocation caching and audit dispatch live under
// internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Persist any secret in plaintext. OTPs, reset tokens, refresh tokens and
//     blacklisted access tokens are stored as SHA-256 digests.
//   - Fail an operation because a side effect failed. Mail, session touch and
//     password re-hash failures are logged and swallowed.
//   - Import any sub-package that re-imports gatekeeper (no import cycles).
//
// # Performance contract
//
// Authenticate is the hot path: one cache lookup for the revocation ledger, a
// signature check and one account read. A confirmed revocation is served from the
// cache without touching storage.
package gatekeeper
