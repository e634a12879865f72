package core

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ErrNoActiveDraft means an authoring operation ran without a draft bound to
// the session. The caller must restart the wizard.
var ErrNoActiveDraft = errors.New("no active draft")

// ErrConflict is returned by Store.UpdateEntry when the entry changed between
// read and write.
var ErrConflict = errors.New("version conflict")

// A ValidationError reports a missing or invalid form field. It is raised
// before any state mutation, so the failing step can simply be re-rendered.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// A TransitionError reports an illegal stage transition. State is unchanged.
type TransitionError struct {
	From   StageCode
	Action string
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("can't %s a standard in stage %q", e.Action, e.From)
}

// A PartialWriteError means the stage mutation succeeded but the dependent
// history append failed. The transition counts as succeeded because the store
// is the source of truth; the missing audit record must be reconciled.
type PartialWriteError struct {
	StandardID string
	Action     string
	Err        error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s of %s succeeded but the history write failed: %v", e.Action, e.StandardID, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
