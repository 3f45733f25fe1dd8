// Package errors provides coded error types for reqtrace.
//
// Codes let the CLI and the HTTP server classify failures without string
// matching:
//   - INVALID_*: malformed input, requirements, markers or configuration
//   - *NOT_FOUND: the registry has no such package
//   - NETWORK_ERROR, REGISTRY_STATUS: the registry could not be read
//
// # Usage
//
//	err := errors.Wrap(errors.ErrCodeInvalidMarker, cause, "evaluate %q", marker)
//	if errors.Is(err, errors.ErrCodeInvalidMarker) {
//	    // report the offending requirement
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an Error.
type Code string

const (
	// Bad input from a user, a config file or the registry's metadata.
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidPackage     Code = "INVALID_PACKAGE"
	ErrCodeInvalidRequirement Code = "INVALID_REQUIREMENT"
	ErrCodeInvalidMarker      Code = "INVALID_MARKER"
	ErrCodeInvalidConfig      Code = "INVALID_CONFIG"

	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"

	// The registry could not be read.
	ErrCodeNetwork        Code = "NETWORK_ERROR"
	ErrCodeRegistryStatus Code = "REGISTRY_STATUS"
	ErrCodeTimeout        Code = "TIMEOUT"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error carries a code, a message for users and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return Wrap(code, nil, format, args...)
}

// Wrap returns an Error with a formatted message around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether any *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// if there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error without its code
// prefix, or err.Error() for other errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps a code to the status the HTTP API answers with. Failures
// caused by the registry's data or availability are reported as 502.
func (c Code) HTTPStatus() int {
	switch c {
	case ErrCodeInvalidInput, ErrCodeInvalidPackage, ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodePackageNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidRequirement, ErrCodeInvalidMarker, ErrCodeRegistryStatus, ErrCodeNetwork:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
