package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// e.g. two concurrent registrations racing on the same username.
var ErrDuplicate = errors.New("duplicate")
