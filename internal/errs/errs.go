package errs

import "errors"

// Sentinel errors shared across services and handlers. Services wrap these
// with fmt.Errorf("%w: ...") to add context; handlers map them to HTTP
// status codes with errors.Is.
var (
	// ErrValidation marks malformed or semantically invalid input,
	// including disallowed state transitions.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing or soft-deleted entity.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks an authenticated caller acting outside its rights,
	// including consent and pause gates on messaging.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks uniqueness violations such as duplicate emails or
	// duplicate donor profiles.
	ErrConflict = errors.New("conflict")

	// ErrRateLimited marks a caller exceeding an abuse guard, such as the
	// per-pair contact throttle.
	ErrRateLimited = errors.New("rate limited")
)
