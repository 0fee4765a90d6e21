package models

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindConflict         ErrorKind = "conflict"
	KindNotFound         ErrorKind = "not_found"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindPaymentGateway   ErrorKind = "payment_gateway"
	KindSignatureInvalid ErrorKind = "signature_invalid"
	KindCreditsExhausted ErrorKind = "credits_exhausted"
	KindInternal         ErrorKind = "internal"
)

// AppError is an application error carrying the kind the HTTP layer maps to
// a status code. Message is safe to show to callers; Err is for logs only.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind
}

// StatusCode maps the kind to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindSignatureInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindCreditsExhausted:
		return http.StatusConflict
	case KindConflict, KindPaymentGateway, KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation       = &AppError{Kind: KindValidation}
	ErrConflict         = &AppError{Kind: KindConflict}
	ErrNotFound         = &AppError{Kind: KindNotFound}
	ErrUnauthorized     = &AppError{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrPaymentGateway   = &AppError{Kind: KindPaymentGateway}
	ErrSignatureInvalid = &AppError{Kind: KindSignatureInvalid}
	ErrCreditsExhausted = &AppError{Kind: KindCreditsExhausted}
)

func NewValidationError(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func NewConflictError(msg string, err error) *AppError {
	return &AppError{Kind: KindConflict, Message: msg, Err: err}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func NewPaymentGatewayError(msg string, err error) *AppError {
	return &AppError{Kind: KindPaymentGateway, Message: msg, Err: err}
}

func NewSignatureError(err error) *AppError {
	return &AppError{Kind: KindSignatureInvalid, Message: "invalid signature", Err: err}
}

func NewCreditsExhaustedError(msg string) *AppError {
	return &AppError{Kind: KindCreditsExhausted, Message: msg}
}

func NewInternalError(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
