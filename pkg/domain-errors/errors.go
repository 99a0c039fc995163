// Package domainerrors carries coded errors across service boundaries.
//
// Services return *Error values so that transports and the action layer can
// translate failures without inspecting message text. The Message of an Error
// is always safe to show to a caller; causes attached with Wrap are not.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
	CodeUnavailable  Code = "unavailable"

	// Identity resolution outcomes. These are expected, recoverable results
	// that carry a caller-facing message rather than faults.
	CodeAmbiguous    Code = "ambiguous"
	CodePrecondition Code = "precondition_failed"
	CodeMismatch     Code = "mismatch"
)

// Error is a coded domain error. Message is caller-safe.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New creates a coded error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and caller-safe message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal
// for uncoded errors. A nil error has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf returns the caller-safe message of err, or fallback when err is
// not a domain error.
func MessageOf(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}

// IsFault reports whether err represents an infrastructure or programming
// failure rather than a modeled outcome.
func IsFault(err error) bool {
	switch CodeOf(err) {
	case CodeInternal, CodeUnavailable:
		return true
	default:
		return false
	}
}
