package repository

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by writes whose target row no longer exists.
// Getters keep returning nil, nil for missing rows.
var ErrNotFound = errors.New("not found")

// validID reports whether id can match a uuid column. Postgres rejects malformed
// uuids with a syntax error, so callers short-circuit to "no rows" instead.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
