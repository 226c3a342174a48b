package draft

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrShapeMismatch        = errors.New("shape mismatch")
	ErrConcurrentSubmission = errors.New("a submission is already in flight for this draft")
	ErrDraftLocked          = errors.New("draft is locked while a submission is in flight")
	ErrDraftSubmitted       = errors.New("draft has already been submitted")
)

// IndexError reports a collection position outside the current bounds
type IndexError struct {
	Collection string
	Index      int
	Length     int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: index %d out of range [0,%d)", e.Collection, e.Index, e.Length)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// ShapeError reports a value whose type does not match the declared field kind.
// Field is the path of the offending field, e.g. "sizes[1].price".
type ShapeError struct {
	Field    string
	Expected string
	Got      string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch on %s: expected %s, got %s", e.Field, e.Expected, e.Got)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

func itemPath(collection string, index int, key string) string {
	if index < 0 {
		return fmt.Sprintf("%s[].%s", collection, key)
	}
	return fmt.Sprintf("%s[%d].%s", collection, index, key)
}
