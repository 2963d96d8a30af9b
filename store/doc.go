// Package store defines the persistence records and ports consumed by the gatekeeper
// engine.
//
// # Records
//
// [Account], [RefreshToken], [Session], [BlacklistEntry] and [SignedURL] carry the
// lifecycle state the engine owns. Secrets are never stored in plaintext: refresh
// tokens, blacklisted access tokens, verification codes and reset tokens are kept
// as SHA-256 hex digests.
//
// # Ports
//
// [Store] groups the per-record interfaces. Implementations live in sub-packages:
//
//   - store/memstore: process memory, used by tests and single-node development.
//   - store/gormstore: PostgreSQL through gorm, migrations embedded with goose.
//
// # What this package must NOT do
//
//   - Import gatekeeper or any implementation package.
//   - Interpret tokens or make authentication decisions.
package store
