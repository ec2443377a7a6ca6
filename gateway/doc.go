// Package gateway is the single HTTP egress of the admin client.
//
// Every call goes through [Gateway.Send], which attaches the live session token
// from the vault, stamps an X-Request-ID, and normalizes every failure into a
// [*RequestError]. A 401 on a call that carried a bearer token tears the
// session down: the token is cleared, [Gateway.OnUnauthorized] subscribers run
// and the [Navigator] is sent to the login route. Concurrent 401s from the same
// credential generation produce exactly one teardown.
//
// Unauthenticated calls that receive a 401 (for example a failed login) are
// returned as ordinary request failures and never trigger a teardown.
package gateway
