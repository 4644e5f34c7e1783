package storage

import "errors"

var (
	// ErrNotFound is returned when a requested run does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a run id is saved twice. Runs are append-only.
	ErrDuplicateKey = errors.New("duplicate key: runs cannot be overwritten")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
