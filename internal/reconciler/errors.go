package reconciler

import (
	"errors"
	"fmt"
)

// ErrMalformedTable indicates the row shapes cannot be reconciled.
var ErrMalformedTable = errors.New("malformed receipt table")

// ErrEmptyTable indicates no item rows exist before the trailer marker.
var ErrEmptyTable = errors.New("empty receipt table")

// TableError describes where reconciliation failed.
type TableError struct {
	Row    int // raw row index, -1 when not tied to a row
	Reason string
	Err    error
}

func (e *TableError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%v: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("%v: row %d: %s", e.Err, e.Row, e.Reason)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

func malformed(row int, format string, args ...any) *TableError {
	return &TableError{Row: row, Reason: fmt.Sprintf(format, args...), Err: ErrMalformedTable}
}

func empty(reason string) *TableError {
	return &TableError{Row: -1, Reason: reason, Err: ErrEmptyTable}
}
