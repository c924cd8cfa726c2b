package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeExecution        = "EXECUTION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInvalidParameter = "INVALID_PARAMETER"
	ErrCodeCoercion         = "COERCION_FAILED"
	ErrCodeCancelled        = "CANCELLED"
	ErrCodeStore            = "STORE_ERROR"
)

// ForgeError is the structured error type for all nodeforge operations.
type ForgeError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
	Strategy string         `json:"strategy,omitempty"`
	Cause    error          `json:"-"`
}

func (e *ForgeError) Error() string {
	if e.Strategy != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Strategy, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ForgeError) Unwrap() error {
	return e.Cause
}

// NewError creates a new ForgeError.
func NewError(code, message string) *ForgeError {
	return &ForgeError{Code: code, Message: message}
}

// NewErrorf creates a new ForgeError with a formatted message.
func NewErrorf(code, format string, args ...any) *ForgeError {
	return &ForgeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStrategy attaches the name of the resolution strategy that produced the error.
func (e *ForgeError) WithStrategy(name string) *ForgeError {
	e.Strategy = name
	return e
}

// WithCause attaches an underlying cause.
func (e *ForgeError) WithCause(err error) *ForgeError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *ForgeError) WithDetails(details map[string]any) *ForgeError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first ForgeError in err's chain, or "".
func CodeOf(err error) string {
	var fe *ForgeError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsNotFound reports whether err carries ErrCodeNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}
