// Package jwt issues and verifies gatekeeper access and refresh tokens with configured
// signing keys and strict validation semantics.
//
// Both token types share [Claims]; the typ claim keeps a refresh token from being
// accepted where an access token is expected and the reverse. Refresh tokens carry the
// persisted row id as jti so the rotator can find the stored row by the token alone.
//
// # What this package must NOT do
//
//   - Consult storage (revocation and rotation state live in the engine).
//   - Accept unsigned tokens outside [Manager.ParseUnverified].
package jwt
