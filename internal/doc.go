// Package internal contains helper utilities that are intentionally private to gatekeeper:
// secure random generation, secret hashing and the packed signed-link envelope.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - blacklist: revocation ledger fronted by a short-TTL cache
//   - config: service configuration loading and validation
//   - flows: orchestrators for login, refresh, logout, reset and verification
//   - httpapi: chi router and JSON handlers for the service binary
//   - metrics: counter ids and latency histograms behind Engine.MetricsSnapshot
//   - obs: zap logger construction
//   - rate: fixed-window rate limiter with memory and Redis stores
//   - security: startup posture report
//
// # What this package must NOT do
//
//   - Export types that appear in the public gatekeeper API.
//   - Be imported by any package outside the gatekeeper module.
package internal
