package db

import "errors"

// Store error taxonomy. Implementations map their driver-level errors
// onto these sentinels so callers can branch with errors.Is without
// knowing the backend.
var (
	// ErrNotFound indicates the referenced conversation does not exist.
	ErrNotFound = errors.New("conversation not found")
	// ErrUniqueViolation indicates an id collision on insert.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrReferentialViolation indicates a message referenced a
	// conversation the store rejected at insert time.
	ErrReferentialViolation = errors.New("referential constraint violation")
	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)
