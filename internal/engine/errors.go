package engine

import "fmt"

// ValidationError rejects malformed input before any store access.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// AuthorizationError rejects an operation the acting identity may not perform.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not allowed: %s", e.Reason)
}

// StateConflictError rejects an operation the current slot state does not
// permit. The caller may retry with fresh state.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict: %s", e.Reason)
}

// Rejection values returned by engine operations. Compared with errors.Is.
var (
	ErrNotCreator         = &AuthorizationError{Reason: "only the slot creator may do this"}
	ErrNotSeatOccupant    = &AuthorizationError{Reason: "only the seat occupant may edit its note"}
	ErrAccessDenied       = &AuthorizationError{Reason: "access denied by policy"}
	ErrAlreadyInSlot      = &StateConflictError{Reason: "already in this slot"}
	ErrSlotFull           = &StateConflictError{Reason: "slot is full"}
	ErrAlreadyQueued      = &StateConflictError{Reason: "already in the waiting queue"}
	ErrSlotNotActive      = &StateConflictError{Reason: "slot is not active"}
	ErrCreatorCannotLeave = &StateConflictError{Reason: "creator cannot leave their own slot"}
	ErrActiveSlotExists   = &StateConflictError{Reason: "creator already has an active slot"}
)

// IsRejection reports whether err is an engine rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	switch err.(type) {
	case *ValidationError, *AuthorizationError, *StateConflictError:
		return true
	}
	return false
}
