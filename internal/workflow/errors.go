package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Store implementations and the engine.
var (
	// ErrNotFound indicates the referenced thread has no workflow record.
	ErrNotFound = errors.New("workflow not found")
	// ErrAlreadyExists indicates a create for a thread that already has a record.
	ErrAlreadyExists = errors.New("workflow already exists")
	// ErrVersionConflict indicates a concurrent writer updated the record first.
	ErrVersionConflict = errors.New("workflow version conflict")
)

// PreconditionError indicates a stage handler ran without its required
// upstream artifact. It is surfaced to the caller rather than skipped.
type PreconditionError struct {
	Stage   string
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("stage %s: required field %s is absent", e.Stage, e.Missing)
}

// ItemError wraps the failure of a single fan-out unit. Item errors are
// isolated per post and never abort the image stage as a whole.
type ItemError struct {
	Index int
	Title string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("post %d (%s): %v", e.Index, e.Title, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
