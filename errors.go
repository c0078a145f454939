package quietroom

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrBlocked is returned when a blocked user attempts a write
	ErrBlocked = errors.New("user is blocked")
)
