// Package internal contains helpers private to adminauth.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - devserver: in-memory reference backend used by tests and local development
//   - limiters: the polled login lockout tracker
//   - metrics: lock-free counters and latency histograms
//   - rate: Redis fixed-window counters behind the backend's sign-in throttle
package internal
