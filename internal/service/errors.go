package service

import "errors"

// Error kinds surfaced by request operations. Callers distinguish them with
// errors.Is; the HTTP layer maps each kind to a status code.
var (
	// ErrValidation marks malformed input on create or an unusable filter.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks a role or ownership mismatch. Never retried.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks an unknown request id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTarget marks an assign target that is not a valid master.
	ErrInvalidTarget = errors.New("invalid assign target")

	// ErrConflict marks a state precondition that no longer holds, including
	// the lost race in take.
	ErrConflict = errors.New("conflict")
)
