// Package session tracks logged-in device contexts.
//
// A session is created on every successful login and is independent of the refresh
// chain created alongside it: revoking one does not revoke the other. The [Registry]
// owns creation, listing, activity tracking and revocation on top of a
// store.Sessions port. [ClassifyDevice] derives a display label from the user agent.
//
// # What this package must NOT do
//
//   - Import gatekeeper (no upward imports).
//   - Use the device label for any security decision.
//   - Enforce ownership; the engine checks that a session belongs to the caller.
package session
