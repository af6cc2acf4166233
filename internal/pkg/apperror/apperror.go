package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for the HTTP layer.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindFieldValidation  Kind = "field_validation"
	KindInvalidSignature Kind = "invalid_signature"
	KindInvalidPayload   Kind = "invalid_payload"
	KindUnauthorized     Kind = "unauthorized"
	KindInternal         Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindNotFound:         http.StatusNotFound,
	KindConflict:         http.StatusBadRequest,
	KindFieldValidation:  http.StatusBadRequest,
	KindInvalidSignature: http.StatusBadRequest,
	KindInvalidPayload:   http.StatusBadRequest,
	KindUnauthorized:     http.StatusUnauthorized,
	KindInternal:         http.StatusInternalServerError,
}

// FieldError names a single offending input field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status is the HTTP status code for the error kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Is matches on Kind so callers can write errors.Is(err, apperror.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrFieldValidation  = &Error{Kind: KindFieldValidation}
	ErrInvalidSignature = &Error{Kind: KindInvalidSignature}
	ErrInvalidPayload   = &Error{Kind: KindInvalidPayload}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrInternal         = &Error{Kind: KindInternal}
)

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// ConflictField reports a uniqueness violation on a named field.
func ConflictField(field, message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Fields: []FieldError{{Field: field, Message: message}}}
}

func FieldValidation(field, message string) *Error {
	return &Error{
		Kind:    KindFieldValidation,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// Validation aggregates several field errors into one.
func Validation(fields []FieldError) *Error {
	msg := "validation failed"
	if len(fields) == 1 {
		msg = fields[0].Message
	}
	return &Error{Kind: KindFieldValidation, Message: msg, Fields: fields}
}

func InvalidSignature(err error) *Error {
	return &Error{Kind: KindInvalidSignature, Message: "Invalid signature", Err: err}
}

func InvalidPayload(message string, err error) *Error {
	if message == "" {
		message = "Invalid payload"
	}
	return &Error{Kind: KindInvalidPayload, Message: message, Err: err}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Could not validate credentials"
	}
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// From extracts an *Error from err, wrapping anything else as Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
