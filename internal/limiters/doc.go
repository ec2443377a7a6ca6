// Package limiters provides the client-side login lockout tracker.
//
// # Tracker
//
// [Tracker] counts consecutive failed sign-ins and, once MaxAttempts is
// reached, records an absolute deadline. It starts no timers: the owner polls
// [Tracker.Tick] and the countdown is derived from the deadline on each call.
//
// # What this package must NOT do
//
//   - Talk to the network or to storage.
//   - Decide which failures count; the caller records only credential failures.
package limiters
