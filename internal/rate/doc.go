// Package rate implements Redis-backed fixed-window failure counters.
//
// # Window semantics
//
// INCR + conditional EXPIRE on the first hit. Keys are "<prefix>:<key>" with
// the key lowercased, so one email address shares a counter across spellings.
//
// The development backend uses it to throttle sign-in per email address.
package rate
