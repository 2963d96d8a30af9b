// Package blacklist implements the revocation ledger for access tokens.
//
// Tokens are identified by the SHA-256 hex digest of the literal token string. The
// durable record lives in a store.Blacklist port; a [Cache] in front of it answers
// repeat lookups for revoked tokens without a storage round trip. Only positive
// results are cached, with a TTL of min(CacheTTL, remaining token lifetime), so a
// cache entry can never outlive the token it describes and a cache miss always
// falls through to storage.
//
// # What this package must NOT do
//
//   - Parse or verify tokens; callers pass digests and expiry instants.
//   - Cache negative lookups.
package blacklist
