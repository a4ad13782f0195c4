package statestore

import "errors"

// Domain errors for the statestore package.
var (
	// ErrNotFound is returned when a key has never been written.
	ErrNotFound = errors.New("statestore: key not found")

	// ErrInvalidKey is returned for an empty key.
	ErrInvalidKey = errors.New("statestore: key cannot be empty")
)
