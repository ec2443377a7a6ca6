package limiters

import (
	"errors"
	"sync"
	"time"
)

// LockoutConfig holds configuration for the client-side login lockout tracker.
type LockoutConfig struct {
	MaxAttempts int
	Duration    time.Duration
}

var (
	// ErrInvalidLockoutConfig is returned by NewTracker for unusable settings.
	ErrInvalidLockoutConfig = errors.New("invalid lockout configuration")
)

// LockoutState is a point-in-time view of the tracker.
//
// LockedUntil is the zero time when no lockout is active. Remaining is derived
// from LockedUntil on every Tick and is never authoritative.
type LockoutState struct {
	FailedAttempts    int
	LockedUntil       time.Time
	Remaining         time.Duration
	AttemptsRemaining int
	// Triggered is set only on the RecordFailure result that entered lockout.
	Triggered bool
	// Expired is set only on the Tick result that ended a lockout.
	Expired bool
}

// Locked reports whether a lockout deadline is recorded.
func (s LockoutState) Locked() bool {
	return !s.LockedUntil.IsZero()
}

// Tracker counts consecutive failed logins for one client session and derives
// a lockout window once MaxAttempts is reached. It is polled: the owner calls
// Tick periodically and no timers are started internally.
type Tracker struct {
	mu     sync.Mutex
	config LockoutConfig

	failed      int
	lockedUntil time.Time
	remaining   time.Duration
}

// NewTracker creates a lockout tracker.
func NewTracker(cfg LockoutConfig) (*Tracker, error) {
	if cfg.MaxAttempts <= 0 || cfg.Duration <= 0 {
		return nil, ErrInvalidLockoutConfig
	}
	return &Tracker{config: cfg}, nil
}

// RecordFailure increments the failure counter. When the new count reaches
// MaxAttempts the lockout deadline is set to now+Duration and the countdown
// restarts at the full duration.
func (t *Tracker) RecordFailure(now time.Time) LockoutState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked(now)

	t.failed++
	triggered := false
	if t.failed >= t.config.MaxAttempts && t.lockedUntil.IsZero() {
		t.lockedUntil = now.Add(t.config.Duration)
		t.remaining = t.config.Duration
		triggered = true
	}

	st := t.stateLocked()
	st.Triggered = triggered
	return st
}

// RecordSuccess resets the failure counter and clears any pending lockout.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failed = 0
	t.lockedUntil = time.Time{}
	t.remaining = 0
}

// IsLockedOut reports whether a lockout is active at now.
func (t *Tracker) IsLockedOut(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return !t.lockedUntil.IsZero() && now.Before(t.lockedUntil)
}

// RemainingAt returns the time left on the lockout at now, or zero when none
// is active.
func (t *Tracker) RemainingAt(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lockedUntil.IsZero() {
		return 0
	}
	return clampRemaining(t.lockedUntil.Sub(now))
}

// Tick recomputes the countdown. Once it reaches zero the deadline and the
// failure counter are cleared in the same critical section, so expiry
// forgives every prior failure.
func (t *Tracker) Tick(now time.Time) LockoutState {
	t.mu.Lock()
	defer t.mu.Unlock()

	expired := t.expireLocked(now)
	st := t.stateLocked()
	st.Expired = expired
	return st
}

// Snapshot returns the current state without advancing the countdown.
func (t *Tracker) Snapshot() LockoutState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stateLocked()
}

// MaxAttempts returns the configured failure threshold.
func (t *Tracker) MaxAttempts() int {
	return t.config.MaxAttempts
}

// Duration returns the configured lockout window.
func (t *Tracker) Duration() time.Duration {
	return t.config.Duration
}

// expireLocked reports whether this call cleared an elapsed lockout.
func (t *Tracker) expireLocked(now time.Time) bool {
	if t.lockedUntil.IsZero() {
		return false
	}
	t.remaining = clampRemaining(t.lockedUntil.Sub(now))
	if t.remaining == 0 {
		t.lockedUntil = time.Time{}
		t.failed = 0
		return true
	}
	return false
}

func (t *Tracker) stateLocked() LockoutState {
	st := LockoutState{
		FailedAttempts: t.failed,
		LockedUntil:    t.lockedUntil,
		Remaining:      t.remaining,
	}
	if t.lockedUntil.IsZero() {
		st.AttemptsRemaining = t.config.MaxAttempts - t.failed
		if st.AttemptsRemaining < 0 {
			st.AttemptsRemaining = 0
		}
	}
	return st
}

func clampRemaining(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
