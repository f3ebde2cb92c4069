package book

import (
	"errors"
	"fmt"
)

// ErrNoBaseline is returned when a delta arrives for a book that was
// never snapshotted; without a baseline the diff has nothing to apply
// against.
var ErrNoBaseline = errors.New("no snapshot baseline for book")

// ParseError reports a price or size string that is not a valid
// decimal. The message that carried it had no effect on the book.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
