// Package federation verifies ID tokens issued by an external OpenID Connect
// provider.
//
// Keys are fetched from the provider's JWKS endpoint and cached. A token signed
// with an unknown kid triggers one refetch, at most once per MinRefreshInterval, so
// provider key rotation is picked up without a restart.
//
// # What this package must NOT do
//
//   - Create or look up accounts; callers map an [Identity] to their own records.
//   - Accept algorithms other than RS256.
package federation
