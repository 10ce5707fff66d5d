package engine

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInternal = errors.New("internal error")
)

// Specific errors, each wrapping a kind.
var (
	ErrTaskNotFound         = fmt.Errorf("task %w", ErrNotFound)
	ErrUnknownUser          = fmt.Errorf("user %w", ErrNotFound)
	ErrNoStreakRecord       = fmt.Errorf("streak record %w", ErrNotFound)
	ErrAlreadyCompleted     = fmt.Errorf("%w: task already completed", ErrConflict)
	ErrStreakAlreadyCurrent = fmt.Errorf("%w: streak already updated today", ErrConflict)
	ErrStreakExists         = fmt.Errorf("%w: streak already exists", ErrConflict)
)

// internal marks a storage failure.
func internal(err error) error {
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
