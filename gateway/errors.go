package gateway

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized marks a 401 on a call that carried a bearer credential.
	// The gateway has already torn the session down when this is returned.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransport wraps network failures, timeouts and cancelled requests.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedResponse indicates a body that is not a response envelope.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRequestFailed marks an application-level failure reported by the backend.
	ErrRequestFailed = errors.New("request failed")
)

const (
	fallbackErrorMessage   = "Something went wrong"
	fallbackFailureMessage = "Request failed, try again"
	malformedMessage       = "Unexpected response from server"
)

// RequestError is the single error shape returned by Send. Status is zero
// when no HTTP response was received.
type RequestError struct {
	Message string
	Status  int
	Err     error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Transport reports whether the failure is unrelated to the request's
// content: no response, a 5xx, or a body that could not be decoded.
func (e *RequestError) Transport() bool {
	if e == nil {
		return false
	}
	return e.Status == 0 ||
		e.Status >= http.StatusInternalServerError ||
		errors.Is(e.Err, ErrTransport) ||
		errors.Is(e.Err, ErrMalformedResponse)
}

func transportError(err error) *RequestError {
	msg := fallbackErrorMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &RequestError{Message: msg, Err: errors.Join(ErrTransport, err)}
}

func statusError(status int, message string) *RequestError {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fallbackErrorMessage
	}
	return &RequestError{Message: message, Status: status, Err: ErrRequestFailed}
}

func failureError(status int, message string) *RequestError {
	if message == "" {
		message = fallbackFailureMessage
	}
	return &RequestError{Message: message, Status: status, Err: ErrRequestFailed}
}
