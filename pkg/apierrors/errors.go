package apierrors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures across the collection pipeline
type ErrorType string

const (
	// ErrorTypeInvalidSubject is a malformed target username, rejected before any store mutation
	ErrorTypeInvalidSubject ErrorType = "invalid_subject"
	// ErrorTypeSubjectNotFound means upstream has no such subject; terminal, not retried
	ErrorTypeSubjectNotFound ErrorType = "subject_not_found"
	// ErrorTypeAuthRejected means the leased credential's session is invalid
	ErrorTypeAuthRejected ErrorType = "auth_rejected"
	// ErrorTypeUpstreamBlocked is a suspected rate-limit or ban signal for the leased credential
	ErrorTypeUpstreamBlocked ErrorType = "upstream_blocked"
	// ErrorTypeExhausted means every credential is leased or disabled
	ErrorTypeExhausted ErrorType = "accounts_exhausted"
	// ErrorTypeJobNotFound is a poll against an unknown or expired job
	ErrorTypeJobNotFound ErrorType = "job_not_found"
	// ErrorTypeResultNotReady is a result fetch against a job that has not completed
	ErrorTypeResultNotReady ErrorType = "result_not_ready"
	// ErrorTypeJobFailed is a result fetch against a job that ended in error
	ErrorTypeJobFailed ErrorType = "job_failed"
	// ErrorTypeNetwork is a transient transport failure
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeServerError is an upstream 5xx
	ErrorTypeServerError ErrorType = "server_error"
	// ErrorTypeParsing is a malformed upstream payload
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeUnknown covers everything else
	ErrorTypeUnknown ErrorType = "unknown"
)

// Error carries a typed failure with an optional upstream status code
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Newf creates a typed error with a formatted message
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// WithCode creates a typed error carrying an upstream status code
func WithCode(t ErrorType, code int, msg string) *Error {
	return &Error{Type: t, Message: msg, Code: code}
}

// TypeOf extracts the ErrorType from an error chain, ErrorTypeUnknown otherwise
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given ErrorType
func Is(err error, t ErrorType) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Type == t
}

// IsRetryable reports whether an error type is worth another attempt,
// possibly with a different credential
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeServerError, ErrorTypeAuthRejected, ErrorTypeUpstreamBlocked:
		return true
	default:
		return false
	}
}

// IsCredentialFailure reports whether the leased credential itself is at fault
// and must be disabled before retrying
func IsCredentialFailure(t ErrorType) bool {
	return t == ErrorTypeAuthRejected || t == ErrorTypeUpstreamBlocked
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
