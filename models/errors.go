package models

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	// ErrVersionMismatch is returned by the store when a compare-and-swap
	// write matched no document for the expected version.
	ErrVersionMismatch = errors.New("task version mismatch")
	ErrNoEligibleUser  = errors.New("no users available for assignment")
	ErrTaskDone        = errors.New("cannot re-assign a task that is Done")
	ErrDuplicateTitle  = ValidationError("task title must be unique")
)

// ValidationError rejects a request before any store write.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// ConflictError carries the authoritative current state back to a caller
// whose expected version went stale. It is a protocol outcome, not a fault.
type ConflictError struct {
	Current *Task
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("task version conflict, current version is %d", e.Current.Version)
}
