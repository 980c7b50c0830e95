package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrDecodeFailure marks a sheet whose page could not be read.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrResourceExhausted marks a batch aborted for lack of resources.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// SheetError records a failure while processing one sheet.
type SheetError struct {
	SheetID string
	Op      string
	Err     error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %s: %s: %v", e.SheetID, e.Op, e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }
