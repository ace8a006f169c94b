package model

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors for the session error taxonomy.
// Use errors.Is() to check against these.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthRequired   = errors.New("authentication required")
	ErrSessionExpired = errors.New("session expired")
	ErrRemote         = errors.New("remote operation failed")
	ErrDataShape      = errors.New("unexpected response shape")
)

// OpError is the structured error every engine operation returns.
// Implements error interface and supports unwrapping to one of the sentinels.
type OpError struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Op         string        `json:"op,omitempty"`
	StatusCode int           `json:"-"` // Remote HTTP status, 0 when local
	RetryAfter time.Duration `json:"-"` // Server retry hint, 0 when absent
	Err        error         `json:"-"`
}

func (e *OpError) Error() string {
	prefix := e.Code
	if e.Op != "" {
		prefix = e.Op + ": " + e.Code
	}
	if e.Err != nil && !isSentinel(e.Err) {
		return fmt.Sprintf("%s: %s (%v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func isSentinel(err error) bool {
	switch err {
	case ErrValidation, ErrAuthRequired, ErrSessionExpired, ErrRemote, ErrDataShape:
		return true
	}
	return false
}

// NewValidationError creates a local, pre-network validation failure.
// The message is shown to the user as-is.
func NewValidationError(field, message string) *OpError {
	return &OpError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Op:      field,
		Err:     ErrValidation,
	}
}

// NewAuthRequiredError reports a gated operation attempted with no credential.
func NewAuthRequiredError(op string) *OpError {
	return &OpError{
		Code:    "AUTH_REQUIRED",
		Message: "please log in to continue",
		Op:      op,
		Err:     ErrAuthRequired,
	}
}

// NewSessionExpiredError reports a remote 401.
func NewSessionExpiredError(op string) *OpError {
	return &OpError{
		Code:       "SESSION_EXPIRED",
		Message:    "Session expired. Please log in again.",
		Op:         op,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrSessionExpired,
	}
}

// NewRemoteError creates an error for a non-2xx response.
// message should be the best-available server message.
func NewRemoteError(op string, status int, message string) *OpError {
	return &OpError{
		Code:       "REMOTE_ERROR",
		Message:    message,
		Op:         op,
		StatusCode: status,
		Err:        ErrRemote,
	}
}

// NewTransportError creates an error for a request that never produced a response,
// including timeouts.
func NewTransportError(op string, err error) *OpError {
	return &OpError{
		Code:    "TRANSPORT_ERROR",
		Message: "network request failed",
		Op:      op,
		Err:     fmt.Errorf("%w: %v", ErrRemote, err),
	}
}

// NewDataShapeError creates an error for a success response missing the expected field.
func NewDataShapeError(op, detail string) *OpError {
	return &OpError{
		Code:    "DATA_SHAPE_ERROR",
		Message: detail,
		Op:      op,
		Err:     ErrDataShape,
	}
}

// IsLoginRedirect reports whether err resolves by navigating to the login view.
func IsLoginRedirect(err error) bool {
	return errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrSessionExpired)
}

// Message returns the user-facing message carried by err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var opErr *OpError
	if errors.As(err, &opErr) && opErr.Message != "" {
		return opErr.Message
	}
	return fallback
}
