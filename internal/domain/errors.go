package domain

import "errors"

var (
	// ErrConflict is returned when a uniqueness constraint (display name,
	// external alias or match id) is violated.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned when a referenced player or entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for malformed identifiers or a player
	// reported against themselves.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTransientStorage means the store was unavailable and nothing was
	// written. Retrying with the same arguments is safe.
	ErrTransientStorage = errors.New("transient storage error")
)
