// Package apperr defines the error taxonomy shared by the clinic core.
//
// Every failure produced by an entity, the registry or a role facade is an
// *Error carrying one of four kinds. Callers test the kind with errors.Is
// against the sentinel values and forward Message verbatim to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a core failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindRule       Kind = "rule_violation"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("conflict")
	ErrRule       = errors.New("business rule violation")
)

// Error is a classified, human readable failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is lets errors.Is match an *Error against the sentinel of its kind.
func (e *Error) Is(target error) bool {
	return sentinel(e.Kind) == target
}

func sentinel(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindRule:
		return ErrRule
	}
	return nil
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Rule(format string, args ...any) *Error {
	return &Error{Kind: KindRule, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status code the API layer answers with.
// Unclassified errors are treated as internal failures.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRule:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Wrap prefixes the message of err with a formatted context, keeping its
// kind. Unclassified errors are wrapped with %w.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	prefix := fmt.Sprintf(format, args...)
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Kind: ae.Kind, Message: prefix + ": " + ae.Message}
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
