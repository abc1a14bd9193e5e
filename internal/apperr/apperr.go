// Package apperr defines the typed failures returned by ingestion and export.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/transaction-manager/internal/models"
)

// Kind classifies an Error.
type Kind string

const (
	KindEmptyFile        Kind = "EmptyFile"
	KindHeaderMismatch   Kind = "HeaderMismatch"
	KindParsing          Kind = "Parsing"
	KindInvalidTimeZone  Kind = "InvalidTimeZone"
	KindUnknownField     Kind = "UnknownField"
	KindDuplicateField   Kind = "DuplicateField"
	KindNoFieldsSelected Kind = "NoFieldsSelected"
	KindInvalidRange     Kind = "InvalidRange"
	KindStorage          Kind = "Storage"
	KindInternal         Kind = "Internal"
)

// Row conversion causes.
var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidLocation = models.ErrInvalidLocation
	ErrInvalidTimeZone = errors.New("invalid time zone")
	ErrMissingValue    = errors.New("missing value")
)

// Error is a domain failure with enough context to build a client message.
type Error struct {
	Kind   Kind
	Title  string
	Detail string

	Field  string
	Row    int
	Column string
	Value  string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Detail)
	if e.Err != nil && e.Kind != KindInternal {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports whether the failure was caused by caller input.
func (e *Error) Validation() bool {
	switch e.Kind {
	case KindStorage, KindInternal:
		return false
	}
	return true
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func EmptyFile() *Error {
	return &Error{
		Kind:   KindEmptyFile,
		Title:  "CSV Parsing Error (File is empty)",
		Detail: "The transactions CSV file is empty.",
	}
}

func HeaderMismatch(want models.FieldSet, got []string) *Error {
	return &Error{
		Kind:   KindHeaderMismatch,
		Title:  "CSV Parsing Error (Headers)",
		Detail: "The transactions CSV file must contain the following headers: " + want.String(),
		Value:  strings.Join(got, ","),
	}
}

// Parsing reports a failed row conversion at row (1-based line) and column.
func Parsing(row int, column, value string, cause error) *Error {
	return &Error{
		Kind:   KindParsing,
		Title:  "Parsing error occurred.",
		Detail: fmt.Sprintf("row %d, column %q, value %q", row, column, value),
		Row:    row,
		Column: column,
		Value:  value,
		Err:    cause,
	}
}

// MalformedCSV reports a syntax error of the CSV stream itself.
func MalformedCSV(row int, cause error) *Error {
	return &Error{
		Kind:  KindParsing,
		Title: "Parsing error occurred.",
		Detail: fmt.Sprintf("row %d is not valid CSV; values containing the delimiter must be enclosed in double quotes",
			row),
		Row: row,
		Err: cause,
	}
}

// RowTimeZone reports a row whose location resolved to no usable zone.
func RowTimeZone(row int, column, value string, cause error) *Error {
	return &Error{
		Kind:   KindInvalidTimeZone,
		Title:  "Invalid Timezone",
		Detail: fmt.Sprintf("row %d, column %q, value %q: no time zone for this location", row, column, value),
		Row:    row,
		Column: column,
		Value:  value,
		Err:    cause,
	}
}

func InvalidTimeZone(zone string) *Error {
	return &Error{
		Kind:   KindInvalidTimeZone,
		Title:  "Invalid Timezone",
		Detail: fmt.Sprintf("The timezone '%s' is invalid.", zone),
		Value:  zone,
		Err:    ErrInvalidTimeZone,
	}
}

func UnknownField(field string) *Error {
	return &Error{
		Kind:   KindUnknownField,
		Title:  "Wrong Field",
		Detail: fmt.Sprintf("You cannot use the '%s' for extraction.", field),
		Field:  field,
	}
}

func DuplicateField(field string) *Error {
	return &Error{
		Kind:   KindDuplicateField,
		Title:  "Duplicate Field",
		Detail: fmt.Sprintf("The field '%s' is selected more than once.", field),
		Field:  field,
	}
}

func NoFieldsSelected() *Error {
	return &Error{
		Kind:   KindNoFieldsSelected,
		Title:  "No Fields",
		Detail: "At least one field must be specified.",
	}
}

func InvalidRange(detail string) *Error {
	return &Error{
		Kind:   KindInvalidRange,
		Title:  "Invalid Range",
		Detail: detail,
	}
}

func Storage(op string, err error) *Error {
	return &Error{
		Kind:   KindStorage,
		Title:  "Storage unavailable",
		Detail: op + " failed",
		Err:    err,
	}
}

// Internal hides err behind an opaque message.
func Internal(err error) *Error {
	return &Error{
		Kind:   KindInternal,
		Title:  "Internal server error.",
		Detail: "A critical internal server error occurred.",
		Err:    err,
	}
}
