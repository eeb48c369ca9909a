package relay

import (
	"fmt"
)

// ErrorCode classifies relay errors for logging and handling decisions.
type ErrorCode string

const (
	// ErrCodeConfig indicates invalid adapter configuration.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodeAuthentication indicates the relay rejected our credentials.
	ErrCodeAuthentication ErrorCode = "AUTH_ERROR"

	// ErrCodeRateLimit indicates the relay throttled the operation.
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT_ERROR"

	// ErrCodeDelivery indicates an outbound send failed. The message is
	// already durably recorded by then; the caller reports, never retries.
	ErrCodeDelivery ErrorCode = "DELIVERY_ERROR"

	// ErrCodeInvalidInput indicates malformed message or addressing data.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT_ERROR"

	// ErrCodeInternal indicates an unexpected adapter failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error is a structured relay error carrying a classification code and the
// underlying cause.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// ErrConfig creates a configuration error.
func ErrConfig(message string, err error) *Error {
	return NewError(ErrCodeConfig, message, err)
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string, err error) *Error {
	return NewError(ErrCodeAuthentication, message, err)
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string, err error) *Error {
	return NewError(ErrCodeRateLimit, message, err)
}

// ErrDelivery creates a delivery error.
func ErrDelivery(message string, err error) *Error {
	return NewError(ErrCodeDelivery, message, err)
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string, err error) *Error {
	return NewError(ErrCodeInvalidInput, message, err)
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string, err error) *Error {
	return NewError(ErrCodeTimeout, message, err)
}

// ErrInternal creates an internal error.
func ErrInternal(message string, err error) *Error {
	return NewError(ErrCodeInternal, message, err)
}
