// Package domainerrors defines code-based errors shared across modules.
//
// Services and handlers create errors with New/Newf/Wrap and a Code; the HTTP
// layer translates the code into a status and a stable machine-readable error
// string. Import with an alias to keep call sites short:
//
//	dErrors "cruce/pkg/domain-errors"
//
//	return dErrors.New(dErrors.CodeValidation, "driver_name is required")
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the class of a domain error. The string value is the
// machine-readable code returned in HTTP error envelopes.
type Code string

const (
	// CodeBadRequest covers malformed requests (unreadable body, wrong types).
	CodeBadRequest Code = "bad_request"

	// CodeInvalidInput covers well-formed values that fail parsing
	// (unknown enum member, out-of-range number).
	CodeInvalidInput Code = "invalid_input"

	// CodeValidation covers requests that parse but violate a business
	// precondition (missing required field, oversized payload).
	CodeValidation Code = "validation_error"

	// CodeNotFound covers requests for resources that do not exist.
	CodeNotFound Code = "not_found"

	// CodeTimeout covers requests abandoned due to a deadline.
	CodeTimeout Code = "timeout"

	// CodeUnavailable covers upstream dependencies that are down or shed.
	CodeUnavailable Code = "unavailable"

	// CodeInvariantViolation marks states the code promises can never occur.
	// Treated as internal when rendered.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal covers unexpected failures. Details are never exposed.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a classification code and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that records an underlying cause.
// The cause participates in errors.Is/As chains but is never rendered to
// clients.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Internal reports whether the error class must not leak details to clients.
func (e *Error) Internal() bool {
	return e.Code == CodeInternal || e.Code == CodeInvariantViolation
}

// HTTPStatus maps the code to an HTTP status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// From extracts the *Error from err's chain. Unknown errors are classified as
// internal so callers always get a renderable error.
func From(err error) *Error {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr
	}
	return &Error{Code: CodeInternal, Message: "internal error", cause: err}
}

// CodeOf returns the code of err, or CodeInternal for unknown errors.
func CodeOf(err error) Code {
	return From(err).Code
}
