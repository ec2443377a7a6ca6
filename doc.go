// Package adminauth is the client-side authentication core of an admin panel.
//
// A [Client], assembled with [Builder], coordinates login with brute-force
// lockout, OTP based password resets, registration and logout against a JSON
// backend. Every operation returns a [Result]; typed errors in Result.Err
// ([*LockedOutError], [*CredentialError], [*LockoutTriggeredError],
// [*TransportError]) work with errors.Is and errors.As.
//
// # Architecture boundaries
//
//   - internal/limiters owns the lockout countdown. It is polled: [Client.Run]
//     or an explicit [Client.Tick] advances it from an injectable clock.
//   - vault owns token persistence and lazy expiry. Session tokens go to a
//     durable store (memory, Redis or SQLite), OTP tokens to process memory.
//   - gateway owns HTTP egress. A 401 on an authenticated call clears the
//     session exactly once per credential generation and notifies the Client.
//
// Token values never reach logs or audit events.
package adminauth
