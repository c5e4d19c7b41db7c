package domain

import "errors"

var (
	// ErrAccessDenied marks actions the principal is not permitted to
	// perform, including view ownership violations. Deliberately distinct
	// from ErrNotFound so callers can surface a 403 rather than a 404.
	ErrAccessDenied = errors.New("access denied")

	// ErrValidation marks structurally malformed input rejected before it
	// reaches the sanitizer or compiler.
	ErrValidation = errors.New("invalid request")

	// ErrUnknownEntity marks a resource name absent from the schema
	// registry. Rejected at the boundary, never deep in the compiler.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrNotFound marks a missing record (view, principal).
	ErrNotFound = errors.New("not found")
)
