package codec

import "fmt"

// Error codes for codec operations.
const (
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeBusy            = "BUSY"
	ErrCodeNotSupported    = "NOT_SUPPORTED"
	ErrCodeNotReady        = "NOT_READY"
	ErrCodeEndOfStream     = "END_OF_STREAM"
	ErrCodeHardware        = "HARDWARE"
	ErrCodeSessionClosed   = "SESSION_CLOSED"
	ErrCodeNotFound        = "NOT_FOUND"
)

// Error provides structured error information for codec operations.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new codec error.
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
