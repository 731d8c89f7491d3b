package repository

import "errors"

// Common storage errors shared by all repository implementations.
var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry means an insert or update violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Resource-specific aliases.
var (
	ErrSessionNotFound = ErrNotFound
	ErrUserNotFound    = ErrNotFound
)
