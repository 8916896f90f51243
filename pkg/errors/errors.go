package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in the response envelope.
const (
	CodeMissingCredential  = "MISSING_CREDENTIAL"
	CodeInvalidCredential  = "INVALID_CREDENTIAL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeCacheMiss          = "CACHE_MISS"
)

// Error is an HTTP-aware application error. Two errors with the same Code
// match under errors.Is regardless of message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of e wrapping cause. An empty message keeps e's.
func (e *Error) WithCause(cause error, message string) *Error {
	wrapped := Clone(e, message)
	if wrapped != nil {
		wrapped.Err = cause
	}
	return wrapped
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

var (
	ErrMissingCredential  = New(CodeMissingCredential, http.StatusUnauthorized, "missing bearer credential")
	ErrInvalidCredential  = New(CodeInvalidCredential, http.StatusUnauthorized, "invalid or expired credential")
	ErrInvalidCredentials = New(CodeInvalidCredentials, http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New(CodeAccountInactive, http.StatusForbidden, "account is inactive")
	ErrNotFound           = New(CodeNotFound, http.StatusNotFound, "resource not found")
	ErrForbidden          = New(CodeForbidden, http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New(CodeUnauthorized, http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New(CodeConflict, http.StatusConflict, "conflict")
	ErrValidation         = New(CodeValidation, http.StatusBadRequest, "validation failed")
	ErrInternal           = New(CodeInternal, http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New(CodeCacheMiss, http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error; unknown errors become internal.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err, "")
}

// Clone returns a copy of err, optionally with a new message. The cause is dropped.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Err = nil
	if message != "" {
		clone.Message = message
	}
	return &clone
}
