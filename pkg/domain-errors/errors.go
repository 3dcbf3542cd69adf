// Package domainerrors provides coded errors shared across keygate services.
//
// Services attach a Code when they create or wrap an error so transport layers
// can translate failures into HTTP statuses without string matching, and so
// callers can branch on HasCode without depending on message text.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and caller branching.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeFailedPrecondition Code = "failed_precondition"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// DomainError carries a machine-readable code alongside a human message and an
// optional wrapped cause.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is treat two domain errors with the same code and message as
// equal, so packages can export DomainError sentinels and wrap them freely.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while preserving the cause chain.
// Returns nil when err is nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// CodeOf returns the code of the outermost domain error in the chain, or
// CodeInternal when the error carries no code.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status used by the JSON error envelope.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeFailedPrecondition, CodeInvariantViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
