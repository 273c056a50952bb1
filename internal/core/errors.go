package core

import (
	"fmt"
	"time"
)

// Error is a structured error with a stable code and an optional cause.
// Codes are the contract: callers match with errors.Is against the
// predefined values below.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError attaches a cause to a predefined error without losing its code.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors. Arithmetic degeneracies (divide by zero, overflow,
// negative capital) are deliberately absent: those are recovered locally by
// clamping and surfaced as counters, never as errors.
var (
	// Data errors: the input series cannot be simulated.
	ErrEmptySeries  = &Error{Code: "EMPTY_SERIES", Message: "input series is empty"}
	ErrMissingField = &Error{Code: "MISSING_FIELD", Message: "required indicator field absent from series schema"}
	ErrBadOrder     = &Error{Code: "BAD_ORDER", Message: "bar timestamps not strictly increasing"}

	// Alignment errors: two series that must line up bar-for-bar do not.
	ErrAlignment = &Error{Code: "ALIGNMENT", Message: "series are not aligned"}

	// Provider errors.
	ErrNoData      = &Error{Code: "NO_DATA", Message: "no historical data available"}
	ErrFetchFailed = &Error{Code: "FETCH_FAILED", Message: "fetching historical data failed"}

	// Config errors.
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Strategy errors.
	ErrUnknownStrategy = &Error{Code: "UNKNOWN_STRATEGY", Message: "unknown strategy name"}
)

// OrderViolation describes where a series breaks the ordering invariant.
type OrderViolation struct {
	Symbol string
	Index  int
	Prev   time.Time
	Curr   time.Time
}

func (v *OrderViolation) Error() string {
	return fmt.Sprintf("%s: bar %d at %s does not advance past %s",
		v.Symbol, v.Index, v.Curr.Format(time.RFC3339), v.Prev.Format(time.RFC3339))
}

// FieldMissing names the indicator field a strategy needed but the series
// schema lacks.
type FieldMissing struct {
	Symbol string
	Field  string
}

func (f *FieldMissing) Error() string {
	return fmt.Sprintf("%s: field %q not in schema", f.Symbol, f.Field)
}

// Misalignment describes a length mismatch between two supposedly aligned
// sequences.
type Misalignment struct {
	What string
	Got  int
	Want int
}

func (m *Misalignment) Error() string {
	return fmt.Sprintf("%s: length %d, want %d", m.What, m.Got, m.Want)
}
