package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindInsufficientContent Kind = "insufficient_content"
	KindValidation          Kind = "validation_error"
	KindInternal            Kind = "internal"
)

// AppError is a failure a caller is expected to act on. Anything that is not
// an AppError is internal.
type AppError struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another AppError of the same kind, so errors.Is(err,
// ErrConflict) works on wrapped errors.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Message == "" && t.Kind == e.Kind
}

var (
	ErrUnauthorized        = &AppError{Kind: KindUnauthorized}
	ErrForbidden           = &AppError{Kind: KindForbidden}
	ErrNotFound            = &AppError{Kind: KindNotFound}
	ErrConflict            = &AppError{Kind: KindConflict}
	ErrInsufficientContent = &AppError{Kind: KindInsufficientContent}
	ErrValidation          = &AppError{Kind: KindValidation}
)

func newf(kind Kind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthorizedf(format string, args ...interface{}) *AppError {
	return newf(KindUnauthorized, format, args...)
}

func Forbiddenf(format string, args ...interface{}) *AppError {
	return newf(KindForbidden, format, args...)
}

func NotFoundf(format string, args ...interface{}) *AppError {
	return newf(KindNotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) *AppError {
	return newf(KindConflict, format, args...)
}

func InsufficientContentf(format string, args ...interface{}) *AppError {
	return newf(KindInsufficientContent, format, args...)
}

func Validationf(format string, args ...interface{}) *AppError {
	return newf(KindValidation, format, args...)
}

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInsufficientContent:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// DetailsOf returns the Details of the first AppError in err's chain.
func DetailsOf(err error) interface{} {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}
