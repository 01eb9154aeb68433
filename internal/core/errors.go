package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceUnavailable  = errors.New("ledger source unavailable")
	ErrSchema             = errors.New("ledger schema invalid")
	ErrDateParse          = errors.New("unparseable date")
	ErrWriteConflict      = errors.New("write conflict")
	ErrRowNotFound        = fmt.Errorf("%w: row not found", ErrWriteConflict)
	ErrNotificationFailed = errors.New("notification failed")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidRecipient   = errors.New("invalid recipient")
	ErrNotConfigured      = errors.New("not configured")
)

// SourceError reports a ledger that could not be opened or read.
type SourceError struct {
	Ledger string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("ledger %s unavailable: %v", e.Ledger, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// SchemaError reports a ledger missing required columns.
type SchemaError struct {
	Ledger  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("ledger %s missing required columns: %s", e.Ledger, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// FieldError reports one unusable cell. It is a warning: the record is kept.
type FieldError struct {
	Source Locator
	Field  string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s row %d field %q value %q: %v", e.Source.Ledger, e.Source.Position, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
