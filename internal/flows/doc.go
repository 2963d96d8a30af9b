// Package flows contains pure-function orchestrators for the Engine's credential
// operations.
//
// Each flow function (RunLogin, RunRefresh, RunValidate, RunLogout, ...) accepts a
// typed dependency struct and returns a result carrying a failure kind. The root
// package maps failure kinds to its exported sentinel errors and records audit
// events and metrics; flows never do either.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the persistence ports, the JWT manager, the
// password pool and the revocation ledger. They do NOT own any of these resources:
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import gatekeeper (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency fields.
package flows
