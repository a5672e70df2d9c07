package domain

import "errors"

// Domain error kinds. Services return these (usually wrapped with %w) so the
// HTTP layer can map each kind to a distinct status with errors.Is, while
// unexpected store errors pass through unclassified.
var (
	// ErrNotFound means the entity id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the entity exists but the caller does not own it.
	// It is raised only after existence is confirmed, so a non-owner can
	// never learn whether an id they do not own exists.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation covers core-level invariant failures such as identifier
	// allocator exhaustion. Field-shape validation happens upstream.
	ErrValidation = errors.New("validation failed")

	// ErrFormInactive means the form exists but currently rejects submissions.
	ErrFormInactive = errors.New("form inactive")

	// ErrOriginNotAllowed means the submitter's origin matched no entry in
	// the form's allow-list.
	ErrOriginNotAllowed = errors.New("origin not allowed")

	// ErrConflict covers duplicate-key fallthrough from the store, e.g. an
	// email already registered or an identifier collision losing the race.
	ErrConflict = errors.New("conflict")
)
