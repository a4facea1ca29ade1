// Package storage defines the store contracts shared by the memory,
// PostgreSQL and ClickHouse backends.
package storage

import "errors"

var (
	// ErrNotFound: the requested reading, label or progress row does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicateKey: a label with the same (timestamp, emotion) is already stored.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrInvalidInput: a write or query was rejected before reaching the backend.
	ErrInvalidInput = errors.New("storage: invalid input")
)
