package adminauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/adminauth/gateway"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/vault"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	User        *UserRecord `json:"user"`
	AccessToken string      `json:"accessToken"`
	Token       string      `json:"token"`
}

// Login submits credentials. The lockout is consulted once, immediately before
// the remote call:
//
//   - while locked the attempt is rejected with *LockedOutError and not counted
//   - a backend rejection is counted and yields *CredentialError, or
//     *LockoutTriggeredError when it exhausts the allowance
//   - a transport failure yields *TransportError and is not counted
//
// On success the session token is stored, the lockout is reset and the
// Payload is the *UserRecord.
func (c *Client) Login(ctx context.Context, email, password string) (res Result) {
	defer c.recoverResult("login", &res)
	if err := c.ready(); err != nil {
		return failed(err)
	}

	c.flow.Lock()
	defer c.flow.Unlock()

	now := c.now()
	if c.tracker.IsLockedOut(now) {
		remaining := c.tracker.RemainingAt(now)
		err := &LockedOutError{Minutes: minutesCeil(remaining), Remaining: remaining}
		c.setState(StateLocked)
		c.metrics.Inc(MetricLoginLockedOut)
		c.emitAudit(ctx, AuditLoginLockedOut, false, err, map[string]string{"email": email})
		return failed(err)
	}

	c.setState(StateAuthenticating)
	env, err := c.gateway.Send(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      c.config.Transport.Endpoints.Login,
		Body:      loginRequest{Email: email, Password: password},
		Header:    c.deviceHeader(),
		Anonymous: true,
	})
	if err != nil {
		return c.loginFailed(ctx, email, err)
	}

	var data loginData
	if err := env.Decode(&data); err != nil {
		c.settle()
		return failed(requestError(err))
	}
	token := firstNonEmpty(data.AccessToken, data.Token, env.Token)
	user := data.User
	if user == nil {
		user = NewUserRecord(nil)
	}

	if token != "" {
		ttl := jwt.BoundTTL(token, c.config.Tokens.SessionTTL(), c.now())
		if ttl <= 0 {
			c.settle()
			return failed(&TransportError{Message: "Server issued an expired session token", Status: env.Status})
		}
		if err := c.vault.Store(ctx, vault.SessionToken, token, ttl); err != nil {
			c.settle()
			c.logger.Printf("adminauth: storing session token: %v", err)
			return failed(err)
		}
		c.gateway.BeginSession()
	}

	c.tracker.RecordSuccess()
	c.mu.Lock()
	c.session = Session{User: user, Authenticated: true}
	c.state = StateAuthenticated
	c.mu.Unlock()

	c.metrics.Inc(MetricLoginSuccess)
	c.emitAudit(ctx, AuditLoginSuccess, true, nil, nil)
	return ok(user)
}

func (c *Client) loginFailed(ctx context.Context, email string, err error) Result {
	meta := map[string]string{"email": email}

	var reqErr *gateway.RequestError
	if !errors.As(err, &reqErr) || reqErr.Transport() {
		c.settle()
		terr := requestError(err)
		if _, ok := terr.(*TransportError); !ok {
			terr = &TransportError{Message: err.Error(), Err: err}
		}
		c.metrics.Inc(MetricLoginTransportFailure)
		c.emitAudit(ctx, AuditLoginFailure, false, terr, meta)
		c.logger.Printf("adminauth: login transport failure: %v", err)
		return failed(terr)
	}

	st := c.tracker.RecordFailure(c.now())
	c.metrics.Inc(MetricLoginFailure)

	if st.Triggered {
		lerr := &LockoutTriggeredError{Minutes: minutesCeil(c.tracker.Duration())}
		c.setState(StateLocked)
		c.metrics.Inc(MetricLockoutTriggered)
		c.emitAudit(ctx, AuditLockoutTriggered, false, lerr, meta)
		return failed(lerr)
	}

	c.settle()
	cerr := &CredentialError{AttemptsRemaining: st.AttemptsRemaining, Message: reqErr.Message}
	c.emitAudit(ctx, AuditLoginFailure, false, cerr, meta)
	return failed(cerr)
}

// Logout notifies the backend and then clears every token, the session and
// the lockout. The remote call is best effort: Logout always succeeds.
func (c *Client) Logout(ctx context.Context) (res Result) {
	defer c.recoverResult("logout", &res)
	if err := c.ready(); err != nil {
		return failed(err)
	}

	_, err := c.gateway.Send(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   c.config.Transport.Endpoints.Logout,
	})
	meta := map[string]string{"remote": "ok"}
	if err != nil {
		meta["remote"] = err.Error()
		c.metrics.Inc(MetricLogoutRemoteFailure)
		c.logger.Printf("adminauth: remote logout failed, clearing locally: %v", err)
	}
	c.emitAudit(ctx, AuditLogout, true, nil, meta)

	c.signOut(ctx)
	c.metrics.Inc(MetricLogout)
	return Result{Success: true}
}

// signOut clears tokens, session and lockout. It runs even when ctx is done.
func (c *Client) signOut(ctx context.Context) {
	if err := c.vault.ClearAll(context.WithoutCancel(ctx)); err != nil {
		c.logger.Printf("adminauth: clearing tokens: %v", err)
	}
	c.gateway.BeginSession()
	c.tracker.RecordSuccess()

	c.mu.Lock()
	c.session = Session{}
	c.state = StateIdle
	c.mu.Unlock()
}

func (c *Client) deviceHeader() http.Header {
	return c.device.Header()
}

// envelopePayload decodes the envelope data for Result.Payload.
func envelopePayload(env *gateway.Envelope) any {
	if env == nil || len(env.Data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return nil
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
