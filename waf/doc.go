// Package waf is a heuristic request-payload filter.
//
// [Scanner] visits every string leaf of a decoded payload (objects, arrays, query
// values) and rejects the whole payload with [ErrSuspiciousPayload] if any leaf
// matches a script/HTML injection, path traversal or SQL keyword pattern. The error
// never names the pattern. It is a coarse outer layer; storage still uses
// parameterized queries and responses are still encoded.
package waf
