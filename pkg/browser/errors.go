package browser

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable   = errors.New("browser runtime unavailable")
	ErrSessionClosed = errors.New("browser session closed")
	// ErrConnection means the target site could not be reached or opened.
	// Fatal for the conversation that hit it, recoverable for the run.
	ErrConnection = errors.New("cannot reach target site")
	// ErrInput means the chat input control could not be located or filled.
	// Transient site hiccups surface here, so callers may retry submission.
	ErrInput = errors.New("chat input unreachable")
)

// SessionError wraps errors from a browser session with a stable code.
type SessionError struct {
	Code    string
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("session error [%s]: %s", e.Code, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(code, message string) *SessionError {
	return &SessionError{Code: code, Message: message}
}

// WrapSessionError wraps an existing error with session context.
func WrapSessionError(code, message string, err error) *SessionError {
	return &SessionError{Code: code, Message: message, Err: err}
}

// IsConnectionError returns true if the error means the target could not be
// reached or navigated to.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnection) {
		return true
	}
	var sessErr *SessionError
	if errors.As(err, &sessErr) {
		return sessErr.Code == "connect" || sessErr.Code == "navigate"
	}
	return false
}

// IsInputError returns true if the error means text could not be submitted.
// These may succeed on retry; the site is known to go briefly unresponsive.
func IsInputError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInput) {
		return true
	}
	var sessErr *SessionError
	if errors.As(err, &sessErr) {
		return sessErr.Code == "input" || sessErr.Code == "submit"
	}
	return false
}
