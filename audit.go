package adminauth

import (
	"context"
	"io"

	internalaudit "github.com/MrEthical07/adminauth/internal/audit"
)

// Audit event types emitted by the Client.
const (
	AuditLoginSuccess       = "login_success"
	AuditLoginFailure       = "login_failure"
	AuditLoginLockedOut     = "login_locked_out"
	AuditLockoutTriggered   = "lockout_triggered"
	AuditLockoutExpired     = "lockout_expired"
	AuditLogout             = "logout"
	AuditOTPRequested       = "otp_requested"
	AuditOTPVerified        = "otp_verified"
	AuditPasswordReset      = "password_reset"
	AuditPasswordUpdated    = "password_updated"
	AuditRegistered         = "registered"
	AuditSessionInvalidated = "session_invalidated"
)

type (
	// AuditEvent is one recorded client action.
	AuditEvent = internalaudit.Event
	// AuditSink receives audit events from the dispatcher goroutine.
	AuditSink = internalaudit.Sink
	// NoOpSink discards events.
	NoOpSink = internalaudit.NoOpSink
	// ChannelSink buffers events on a channel.
	ChannelSink = internalaudit.ChannelSink
	// JSONWriterSink writes one JSON object per line.
	JSONWriterSink = internalaudit.JSONWriterSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func (c *Client) emitAudit(ctx context.Context, eventType string, success bool, err error, metadata map[string]string) {
	if c.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: c.now().UTC(),
		EventType: eventType,
		State:     c.State().String(),
		Success:   success,
		Metadata:  metadata,
	}
	if sess := c.Session(); sess.User != nil {
		event.UserID = sess.User.ID()
		event.Email = sess.User.Email()
	}
	if err != nil {
		event.Error = err.Error()
	}
	c.audit.Emit(ctx, event)
}
