package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures so the transport can map them to a status.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindInvalidRange ErrorKind = "invalid_range"
	KindConflict     ErrorKind = "conflict"
	KindInternal     ErrorKind = "internal"
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the error type returned by every operation that can fail for a
// reason the caller should see.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if b.Len() == 0 && e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	for i, f := range e.Fields {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f.Field)
		b.WriteString(" ")
		b.WriteString(f.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing entity.
func NotFound(entity string, id int64) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

// InvalidRange reports an ordering violation such as date_from > date_to.
func InvalidRange(format string, args ...any) error {
	return &Error{Kind: KindInvalidRange, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness or state violation.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a single invalid field.
func Validation(field string, err error) error {
	return &Error{
		Kind:    KindValidation,
		Message: "invalid input",
		Fields:  []FieldError{{Field: field, Message: err.Error()}},
		Err:     err,
	}
}

// KindOf returns the kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldErrors accumulates validation failures across all fields of an input.
type FieldErrors []FieldError

func (fe *FieldErrors) Add(field string, err error) {
	*fe = append(*fe, FieldError{Field: field, Message: err.Error()})
}

func (fe *FieldErrors) Addf(field, format string, args ...any) {
	*fe = append(*fe, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Has reports whether a failure was already recorded for field.
func (fe FieldErrors) Has(field string) bool {
	for _, f := range fe {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil when nothing was recorded.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Message: "invalid input", Fields: fe}
}
