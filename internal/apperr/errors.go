// Package apperr defines the error taxonomy surfaced by table operations.
package apperr

import (
	"errors"
	"fmt"
)

// Code categorizes an Error.
type Code string

const (
	// UnknownColumn indicates a field expression or payload key names a
	// column that does not exist in the table.
	UnknownColumn Code = "UNKNOWN_COLUMN"

	// UnknownFunction indicates the engine rejected a function name used in
	// a field expression. Detected at execution time.
	UnknownFunction Code = "UNKNOWN_FUNCTION"

	// TableNotFound indicates a schema lookup miss.
	TableNotFound Code = "TABLE_NOT_FOUND"

	// InvalidTemporalValue indicates a date or datetime value could not be
	// parsed during row coercion.
	InvalidTemporalValue Code = "INVALID_TEMPORAL_VALUE"

	// InvalidArgument indicates a malformed request (bad pagination, empty
	// update payload, non-scalar filter value).
	InvalidArgument Code = "INVALID_ARGUMENT"

	// InvalidPlan indicates a query plan failed validation before compilation.
	InvalidPlan Code = "INVALID_PLAN"

	// EngineError is an opaque failure from the underlying executor.
	EngineError Code = "ENGINE_ERROR"
)

// Error is the structured error returned by the query layer.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Table is the table being accessed, when known.
	Table string

	// Column is the offending column or expression, when known.
	Column string

	// Err is the underlying cause (engine or parse error).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Table != "" {
		msg += fmt.Sprintf(" (table=%s)", e.Table)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is (or wraps) an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or the empty
// code when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NewUnknownColumn creates an UnknownColumn error.
func NewUnknownColumn(table, column string) *Error {
	return &Error{
		Code:    UnknownColumn,
		Message: fmt.Sprintf("no column named %q", column),
		Table:   table,
		Column:  column,
	}
}

// NewTableNotFound creates a TableNotFound error.
func NewTableNotFound(table string, available []string) *Error {
	msg := fmt.Sprintf("no table named %q", table)
	if available != nil {
		msg += fmt.Sprintf(" (available: %v)", available)
	}
	return &Error{
		Code:    TableNotFound,
		Message: msg,
		Table:   table,
	}
}

// NewInvalidTemporal creates an InvalidTemporalValue error.
func NewInvalidTemporal(table, column string, value any, err error) *Error {
	return &Error{
		Code:    InvalidTemporalValue,
		Message: fmt.Sprintf("cannot parse %v for column %q", value, column),
		Table:   table,
		Column:  column,
		Err:     err,
	}
}

// NewInvalidArgument creates an InvalidArgument error.
func NewInvalidArgument(format string, args ...any) *Error {
	return &Error{
		Code:    InvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapEngine wraps an executor failure as EngineError unless it already
// carries a code.
func WrapEngine(table string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{
		Code:    EngineError,
		Message: "query execution failed",
		Table:   table,
		Err:     err,
	}
}
