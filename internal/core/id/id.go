// Package id provides UUIDv7 identifiers for every entity.
package id

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7 (time-ordered UUID).
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}

// Compare orders ids by their byte representation.
func Compare(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}

// Sort sorts ids in place in Compare order.
// Writers touching several rows sort first so concurrent batches lock rows in the same order.
func Sort(ids []ID) {
	slices.SortFunc(ids, Compare)
}
