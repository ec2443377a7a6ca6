package adminauth

import (
	"context"
	"net/http"

	"github.com/MrEthical07/adminauth/gateway"
	"github.com/MrEthical07/adminauth/vault"
)

// Payload is a request body forwarded to the backend unchanged.
type Payload map[string]any

func (p Payload) with(key string, value any) Payload {
	out := make(Payload, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[key] = value
	return out
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ForgotPassword asks the backend to send a password reset code.
func (c *Client) ForgotPassword(ctx context.Context, payload Payload) (res Result) {
	defer c.recoverResult("forgot-password", &res)
	res = c.passThrough(ctx, c.config.Transport.Endpoints.ForgotPassword, payload, true)
	if res.Success {
		c.metrics.Inc(MetricPasswordResetRequest)
		c.emitAudit(ctx, AuditOTPRequested, true, nil, nil)
	}
	return res
}

// UpdatePassword changes the password of the signed-in administrator.
func (c *Client) UpdatePassword(ctx context.Context, payload Payload) (res Result) {
	defer c.recoverResult("update-password", &res)
	res = c.passThrough(ctx, c.config.Transport.Endpoints.UpdatePassword, payload, false)
	if res.Success {
		c.metrics.Inc(MetricPasswordUpdate)
		c.emitAudit(ctx, AuditPasswordUpdated, true, nil, nil)
	}
	return res
}

// Register creates an administrator account. It does not sign in.
func (c *Client) Register(ctx context.Context, email, password, name string) (res Result) {
	defer c.recoverResult("register", &res)
	if err := c.ready(); err != nil {
		return failed(err)
	}

	env, err := c.gateway.Send(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      c.config.Transport.Endpoints.Register,
		Body:      registerRequest{Email: email, Password: password, Name: name},
		Anonymous: true,
	})
	if err != nil {
		return failed(requestError(err))
	}
	c.metrics.Inc(MetricRegister)
	c.emitAudit(ctx, AuditRegistered, true, nil, map[string]string{"email": email})
	return ok(envelopePayload(env))
}

// VerifyOTP submits a one-time code. A token returned by the backend is kept
// as the OTP token for Tokens.OTPTTLMinutes; the session is not changed.
func (c *Client) VerifyOTP(ctx context.Context, payload Payload) (res Result) {
	defer c.recoverResult("verify-otp", &res)
	if err := c.ready(); err != nil {
		return failed(err)
	}

	env, err := c.gateway.Send(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      c.config.Transport.Endpoints.VerifyOTP,
		Body:      payload,
		Header:    c.deviceHeader(),
		Anonymous: true,
	})
	if err != nil {
		return failed(requestError(err))
	}

	var data struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
	}
	if err := env.Decode(&data); err != nil {
		return failed(requestError(err))
	}
	if token := firstNonEmpty(env.Token, data.Token, data.AccessToken); token != "" {
		if err := c.vault.Store(ctx, vault.OTPToken, token, c.config.Tokens.OTPTTL()); err != nil {
			return failed(err)
		}
	}

	c.metrics.Inc(MetricOTPVerified)
	c.emitAudit(ctx, AuditOTPVerified, true, nil, nil)
	return ok(envelopePayload(env))
}

// UpdatePasswordAuth completes a reset with the OTP token obtained from
// VerifyOTP. On success every token, the session and the lockout are cleared:
// the administrator must sign in again with the new password.
func (c *Client) UpdatePasswordAuth(ctx context.Context, payload Payload) (res Result) {
	defer c.recoverResult("reset-password", &res)
	if err := c.ready(); err != nil {
		return failed(err)
	}

	token, found, err := c.vault.Read(ctx, vault.OTPToken)
	if err != nil {
		return failed(err)
	}
	if !found {
		return failed(ErrNoOTPToken)
	}

	env, err := c.gateway.Send(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      c.config.Transport.Endpoints.ResetPassword,
		Body:      payload.with("token", token),
		Anonymous: true,
	})
	if err != nil {
		return failed(requestError(err))
	}

	c.emitAudit(ctx, AuditPasswordReset, true, nil, nil)
	c.signOut(ctx)
	c.metrics.Inc(MetricPasswordResetSuccess)
	return ok(envelopePayload(env))
}

func (c *Client) passThrough(ctx context.Context, path string, payload Payload, anonymous bool) Result {
	if err := c.ready(); err != nil {
		return failed(err)
	}
	env, err := c.gateway.Send(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      path,
		Body:      payload,
		Anonymous: anonymous,
	})
	if err != nil {
		return failed(requestError(err))
	}
	return ok(envelopePayload(env))
}
