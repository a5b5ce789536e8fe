package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is a unique-constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrVersionConflict means another writer committed first: a showtime
	// version or booking status no longer matches what the caller read.
	ErrVersionConflict = errors.New("version conflict")
)
