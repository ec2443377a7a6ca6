package adminauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminauth/gateway"
)

var (
	// ErrLockedOut is matched by *LockedOutError.
	ErrLockedOut = errors.New("account locked")
	// ErrInvalidCredentials is matched by *CredentialError.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLockoutTriggered is matched by *LockoutTriggeredError.
	ErrLockoutTriggered = errors.New("lockout triggered")
	// ErrTransport is matched by *TransportError.
	ErrTransport = errors.New("transport failure")
	// ErrClientNotReady is returned by operations on a nil or closed Client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrNoOTPToken is returned by UpdatePasswordAuth when no live OTP token exists.
	ErrNoOTPToken = errors.New("no otp token; verify the code first")
	// ErrUnauthorized is returned when the backend revoked the session.
	ErrUnauthorized = gateway.ErrUnauthorized
)

// LockedOutError rejects a login attempted while the lockout is active.
type LockedOutError struct {
	Minutes   int
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("Account locked. Try again in %d minutes.", e.Minutes)
}

func (e *LockedOutError) Is(target error) bool { return target == ErrLockedOut }

// CredentialError reports a rejected login that did not trigger lockout.
type CredentialError struct {
	AttemptsRemaining int
	// Message is the backend's explanation, when one was given.
	Message string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("Invalid credentials. %d attempts remaining.", e.AttemptsRemaining)
}

func (e *CredentialError) Is(target error) bool { return target == ErrInvalidCredentials }

// LockoutTriggeredError reports the failure that started a lockout.
type LockoutTriggeredError struct {
	Minutes int
}

func (e *LockoutTriggeredError) Error() string {
	return fmt.Sprintf("Too many failed attempts. Account locked for %d minutes.", e.Minutes)
}

func (e *LockoutTriggeredError) Is(target error) bool { return target == ErrLockoutTriggered }

// TransportError is a failure that says nothing about the credentials: the
// backend was unreachable, answered 5xx or sent an unreadable body.
type TransportError struct {
	Message string
	Status  int
	Err     error
}

func (e *TransportError) Error() string { return e.Message }

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// minutesCeil rounds d up to whole minutes.
func minutesCeil(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
