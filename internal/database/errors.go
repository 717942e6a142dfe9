package database

import "errors"

// ErrNotFound is returned when a referenced person, photo, enrollment or
// match does not exist.
var ErrNotFound = errors.New("record not found")
