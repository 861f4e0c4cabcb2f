package apperr

import "fmt"

// ValidationError represents structurally invalid input. Validation
// failures are deterministic and must not be retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError represents a reference to a user or record that does
// not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError represents a duplicate creation attempt: a user id
// that already exists, or a second log for an already recorded date.
type ConflictError struct {
	Resource string
	Detail   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Detail)
}

// ComputationError represents a numerical failure inside the filter or
// simulator. It indicates a modeling bug, is fatal to the request, and
// must never reach persisted state.
type ComputationError struct {
	Op     string
	Detail string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed in %s: %s", e.Op, e.Detail)
}
