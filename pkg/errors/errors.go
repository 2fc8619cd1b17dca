// Package errors defines the typed error every service returns and the HTTP
// metadata the API derives from its code.
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
	CodeOutOfStock    Code = "OUT_OF_STOCK"
	CodeInsufficient  Code = "INSUFFICIENT_STOCK"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is the public face of a code. ExposeMessage lets the caller's own
// message replace PublicMessage; server-side codes never expose theirs.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

type trait uint8

const (
	retryable trait = 1 << iota
	details
	internal
)

func describe(status int, public string, traits trait) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      traits&retryable != 0,
		DetailsAllowed: traits&details != 0,
		ExposeMessage:  traits&internal == 0,
	}
}

var catalog = map[Code]Metadata{
	CodeValidation:    describe(http.StatusBadRequest, "validation failed", details),
	CodeUnauthorized:  describe(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:     describe(http.StatusForbidden, "access denied", 0),
	CodeNotFound:      describe(http.StatusNotFound, "resource not found", 0),
	CodeConflict:      describe(http.StatusConflict, "conflict detected", 0),
	CodeOutOfStock:    describe(http.StatusConflict, "product is out of stock", details),
	CodeInsufficient:  describe(http.StatusConflict, "not enough stock", details),
	CodeStateConflict: describe(http.StatusUnprocessableEntity, "state transition disallowed", details),
	CodeIdempotency:   describe(http.StatusConflict, "idempotency key reused", details),
	CodeRateLimit:     describe(http.StatusTooManyRequests, "rate limit exceeded", 0),
	CodeInternal:      describe(http.StatusInternalServerError, "internal server error", retryable|internal),
	CodeDependency:    describe(http.StatusServiceUnavailable, "dependency unavailable", retryable|details|internal),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
}

// Error carries a Code, a caller-facing message, optional structured details
// and the underlying cause. Methods are nil-safe.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

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

// WithDetails mutates and returns e.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// PublicMessage is what a client may see for e.
func (e *Error) PublicMessage() string {
	meta := MetadataFor(e.Code())
	if msg := e.Message(); meta.ExposeMessage && msg != "" {
		return msg
	}
	return meta.PublicMessage
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// Retryable reports whether a client may retry the same request. Untyped
// errors count as internal.
func Retryable(err error) bool {
	return err != nil && MetadataFor(As(err).Code()).Retryable
}
