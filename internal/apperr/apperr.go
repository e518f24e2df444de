// Package apperr defines the structured error taxonomy surfaced by the
// gateway. Errors carry a stable machine-readable code instead of relying
// on error-string matching at call sites.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error classification.
type Code string

// Error codes surfaced on the wire.
const (
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeSessionNotFound    Code = "SESSION_NOT_FOUND"
	CodeCollectorNotFound  Code = "COLLECTOR_NOT_FOUND"
	CodeCollectorAmbiguous Code = "COLLECTOR_AMBIGUOUS"
	CodeQueryNotFound      Code = "QUERY_NOT_FOUND"
	CodeConnectionFailure  Code = "CONNECTION_FAILURE"
	CodeExecutionError     Code = "EXECUTION_ERROR"
	CodeUpstreamError      Code = "UPSTREAM_ERROR"
	CodeConfigWarning      Code = "CONFIG_WARNING"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// httpStatus maps each Code to the HTTP status it is served with.
var httpStatus = map[Code]int{
	CodeInvalidArgument:    http.StatusBadRequest,
	CodeSessionNotFound:    http.StatusNotFound,
	CodeCollectorNotFound:  http.StatusNotFound,
	CodeCollectorAmbiguous: http.StatusConflict,
	CodeQueryNotFound:      http.StatusNotFound,
	CodeConnectionFailure:  http.StatusBadGateway,
	CodeExecutionError:     http.StatusBadRequest,
	CodeUpstreamError:      http.StatusBadGateway,
	CodeConfigWarning:      http.StatusOK,
	CodeInternal:           http.StatusInternalServerError,
}

// Error is the gateway's structured error type. It wraps an optional
// underlying cause for %w-based unwrapping while carrying a stable Code
// and caller-facing Message independent of that cause's text.
type Error struct {
	Code    Code
	Message string
	// Details carries structured context, e.g. ambiguous collector
	// candidates, echoed verbatim on the wire.
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus returns the status code this error's Code maps to.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error carrying cause as its unwrap target.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithDetails attaches structured details and returns the same Error for
// chaining at the call site.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// InvalidArgument is a convenience constructor for the most common case.
func InvalidArgument(format string, args ...interface{}) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

// SessionNotFound is a convenience constructor.
func SessionNotFound(sessionID string) *Error {
	return Newf(CodeSessionNotFound, "session not found: %s", sessionID)
}

// As extracts an *Error from err via errors.As, returning ok=false if err
// is not (or does not wrap) an *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// FlattenCause walks err's Unwrap chain and returns the deepest non-blank
// message, matching the "flatten the cause chain to the deepest
// non-blank message" rule used by the Collector Runner's query-level error
// reporting.
func FlattenCause(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		if s := next.Error(); s != "" {
			msg = s
		}
		err = next
	}
	return msg
}
