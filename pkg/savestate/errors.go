package savestate

import (
	"errors"
	"fmt"
)

var (
	ErrSlotNotFound = errors.New("slot not found")
	ErrBadSlot      = errors.New("slot index out of range")

	errEmptyImage = errors.New("empty image")
)

// SaveIOError is a failed store or core file operation.
type SaveIOError struct {
	Op  string
	Key string
	Err error
}

func (e *SaveIOError) Error() string { return fmt.Sprintf("%v %v: %v", e.Op, e.Key, e.Err) }
func (e *SaveIOError) Unwrap() error { return e.Err }
