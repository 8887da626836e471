package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeInterrupted ErrorType = "interrupted"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeStatus      ErrorType = "status"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypePersistence ErrorType = "persistence"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a classified failure. Page is set for per-page fetch failures
// and is zero otherwise.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Page    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Page != 0 {
		msg += fmt.Sprintf(" on page %d", e.Page)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without a cause
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates an Error around cause
func Wrap(errorType ErrorType, message string, cause error) *Error {
	return &Error{Type: errorType, Message: message, Err: cause}
}

// TypeOf returns the ErrorType of the first *Error in err's chain,
// or ErrorTypeUnknown when there is none.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type
func Is(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode reports whether an HTTP status is transient:
// 429, 500, 502, 503 or 504.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// TypeForStatus maps a non-2xx HTTP status to an ErrorType
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeStatus
	}
}

// StatusOf returns the HTTP status carried by the first *Error in err's
// chain, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
