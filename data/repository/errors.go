package repository

import "errors"

var (
	ErrAlreadyExists = errors.New("error already exists")
	ErrNotFound      = errors.New("error not found")

	// ErrConcurrentModification means a lot changed between read and
	// write (version mismatch); the caller re-reads and retries the
	// whole allocation.
	ErrConcurrentModification = errors.New("error concurrent modification")
)
