// Package rate implements fixed-window request counting keyed by identity and route.
//
// # Window semantics
//
// The first hit on a key opens a window of the policy's length; every hit inside it
// increments the counter. Hit number Limit+1 is rejected with the time remaining
// until the window closes. The next hit after that opens a fresh window.
//
// # Stores
//
//   - [MemoryStore]: process-scoped map with an injectable clock. [MemoryStore.Sweep]
//     drops closed windows.
//   - [RedisStore]: shared across instances. INCR, then PEXPIRE on the first hit,
//     then PTTL for the reset time.
//
// # What this package must NOT do
//
//   - Decide which routes are limited or with what policy (the engine owns that).
//   - Be imported outside the gatekeeper module.
package rate
