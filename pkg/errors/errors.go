// Package errors defines the typed error used across services. The code
// decides the HTTP status and whether the message reaches the client; the
// cause chain is kept for logs only.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeInsufficient  Code = "INSUFFICIENT_STOCK"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is the response policy for a Code.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	final     = false
	retryable = true
	noDetails = false
	details   = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, final, "validation failed", details},
	CodeUnauthorized:  {http.StatusUnauthorized, final, "authentication required", noDetails},
	CodeForbidden:     {http.StatusForbidden, final, "access denied", noDetails},
	CodeNotFound:      {http.StatusNotFound, final, "resource not found", noDetails},
	CodeConflict:      {http.StatusConflict, final, "conflict detected", noDetails},
	CodeStateConflict: {http.StatusUnprocessableEntity, final, "state transition disallowed", details},
	CodeInsufficient:  {http.StatusConflict, final, "insufficient stock", details},
	CodeIdempotency:   {http.StatusConflict, final, "idempotency key reused", details},
	CodeRateLimit:     {http.StatusTooManyRequests, final, "rate limit exceeded", noDetails},
	CodeInternal:      {http.StatusInternalServerError, retryable, "internal server error", noDetails},
	CodeDependency:    {http.StatusServiceUnavailable, retryable, "dependency unavailable", details},
}

// MetadataFor returns the policy for code; unknown codes are treated as
// internal errors.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf formats the message before building the typed error.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the structured details shown to clients for codes that
// allow them. It mutates and returns e.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error with the same code, so errors.Is(err,
// New(CodeNotFound, "")) works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.code == t.code
}

// IsCode reports whether err carries a typed error with the given code
// anywhere in its chain.
func IsCode(err error, code Code) bool {
	return stdErrors.Is(err, &Error{code: code})
}

// As returns the outermost typed error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
