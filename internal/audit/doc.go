// Package audit relays client authentication events to a caller-supplied sink.
//
// [Dispatcher] buffers events on a channel and delivers them from a single
// goroutine so Login and Logout never block on a slow sink. With DropIfFull set,
// a full buffer drops the event and counts it instead of waiting.
//
// The package does not decide which events exist; the root Client does.
package audit
