package db

import "errors"

// ErrNotFound is returned when a write targets an entity that does not exist.
var ErrNotFound = errors.New("entity not found")
