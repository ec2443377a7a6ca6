package adminauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/MrEthical07/adminauth/gateway"
	"github.com/MrEthical07/adminauth/internal"
	internalaudit "github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/internal/limiters"
	"github.com/MrEthical07/adminauth/vault"
)

// LockoutState is a point-in-time view of the login lockout.
type LockoutState = limiters.LockoutState

// Client is the authentication orchestrator for one administrator. It is safe
// for concurrent use; Login calls are serialized.
type Client struct {
	config  Config
	vault   *vault.Vault
	gateway *gateway.Gateway
	tracker *limiters.Tracker
	metrics *Metrics
	audit   *internalaudit.Dispatcher
	logger  *log.Logger
	now     func() time.Time
	device  internal.Device
	closers []io.Closer

	// flow serializes Login so each attempt sees its predecessor's outcome.
	flow sync.Mutex

	mu      sync.RWMutex
	state   State
	session Session
	closed  bool
}

// State returns the current state machine position.
func (c *Client) State() State {
	if c == nil {
		return StateIdle
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	if c == nil {
		return Session{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Lockout returns the tracker state without advancing the countdown.
func (c *Client) Lockout() LockoutState {
	return c.tracker.Snapshot()
}

// IsLockedOut reports whether a login attempted now would be rejected.
func (c *Client) IsLockedOut() bool {
	return c.tracker.IsLockedOut(c.now())
}

// Tick advances the lockout countdown to now. When the countdown reaches zero
// the lockout and every recorded failure are forgiven and a Locked client
// returns to Idle, or to Authenticated if a session survived.
func (c *Client) Tick(now time.Time) LockoutState {
	st := c.tracker.Tick(now)
	if !st.Expired {
		return st
	}

	c.mu.Lock()
	if c.state == StateLocked {
		c.state = c.restingStateLocked()
	}
	c.mu.Unlock()

	c.metrics.Inc(MetricLockoutExpired)
	c.emitAudit(context.Background(), AuditLockoutExpired, true, nil, nil)
	return st
}

// Run drives Tick every Lockout.TickInterval until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	ticker := time.NewTicker(c.config.Lockout.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick(c.now())
		}
	}
}

// Gateway returns the request gateway for resource calls made on behalf of
// this session.
func (c *Client) Gateway() *gateway.Gateway {
	return c.gateway
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return c.config
}

// SessionToken returns the live session token record. Its String method
// redacts the token value.
func (c *Client) SessionToken(ctx context.Context) (vault.Record, bool, error) {
	if err := c.ready(); err != nil {
		return vault.Record{}, false, err
	}
	return c.vault.Record(ctx, vault.SessionToken)
}

// OTPToken returns the live OTP token record, if verification succeeded within
// the OTP lifetime.
func (c *Client) OTPToken(ctx context.Context) (vault.Record, bool, error) {
	if err := c.ready(); err != nil {
		return vault.Record{}, false, err
	}
	return c.vault.Record(ctx, vault.OTPToken)
}

func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// Close flushes the audit dispatcher and releases owned stores. Operations on
// a closed Client fail with ErrClientNotReady.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.audit.Close()
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) ready() error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientNotReady
	}
	return nil
}

// restingStateLocked is the state a client settles in outside a login attempt.
// c.mu must be held.
func (c *Client) restingStateLocked() State {
	if c.session.Authenticated {
		return StateAuthenticated
	}
	return StateIdle
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// settle leaves Authenticating after an attempt that ended without a result.
func (c *Client) settle() {
	c.mu.Lock()
	if c.state == StateAuthenticating {
		c.state = c.restingStateLocked()
	}
	c.mu.Unlock()
}

// endSession drops the in-memory session. A Locked client stays Locked.
func (c *Client) endSession() {
	c.mu.Lock()
	c.session = Session{}
	if c.state != StateLocked {
		c.state = StateIdle
	}
	c.mu.Unlock()
}

// handleUnauthorized runs once per gateway teardown. The gateway has already
// cleared the session token.
func (c *Client) handleUnauthorized() {
	c.emitAudit(context.Background(), AuditSessionInvalidated, false, ErrUnauthorized, nil)
	c.metrics.Inc(MetricSessionInvalidated)
	c.endSession()
	c.logger.Printf("adminauth: session invalidated by server")
}

// recoverResult turns a panic inside op into a failed Result.
func (c *Client) recoverResult(op string, res *Result) {
	r := recover()
	if r == nil {
		return
	}
	if c != nil {
		c.settle()
		if c.logger != nil {
			c.logger.Printf("adminauth: %s panicked: %v", op, r)
		}
	}
	*res = failed(fmt.Errorf("%s: unexpected failure: %v", op, r))
}

// requestError maps a gateway failure onto the client's error vocabulary.
func requestError(err error) error {
	var reqErr *gateway.RequestError
	if errors.As(err, &reqErr) && reqErr.Transport() && !errors.Is(err, gateway.ErrUnauthorized) {
		return &TransportError{Message: reqErr.Message, Status: reqErr.Status, Err: err}
	}
	return err
}
