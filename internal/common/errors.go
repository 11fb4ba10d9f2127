package common

import "errors"

// Business logic errors. Boundary layers match these with errors.Is
// and map each kind to a distinct status / exit code.
var (
	// Lookup errors
	ErrNotFound        = errors.New("prompt not found")
	ErrVersionNotFound = errors.New("version not found")

	// Write errors
	ErrDuplicateSlug = errors.New("slug already exists")
	ErrConflict      = errors.New("concurrent update conflict")

	// ErrDuplicateVersion means a snapshot hit an existing
	// (prompt_id, version) pair. The update transaction serializes
	// version slots, so seeing this is a bug signal, not a user error.
	ErrDuplicateVersion = errors.New("duplicate version snapshot")

	// Input errors
	ErrValidation = errors.New("invalid input")

	// Render errors. Never returned from writes: detection and
	// extraction degrade gracefully so malformed templates stay storable.
	ErrTemplateRender = errors.New("template render failed")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
)
