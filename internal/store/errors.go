package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
// The database constraint is the authoritative duplicate check; callers may
// pre-check for better error messages but must still handle this.
var ErrDuplicate = errors.New("duplicate record")
