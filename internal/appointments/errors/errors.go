package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrInvalidID = errors.New("invalid appointment ID format")

	// ErrStatusChanged means a compare-and-set update lost to a concurrent writer.
	ErrStatusChanged = errors.New("appointment status changed concurrently")

	ErrLockHeld = errors.New("booking lock is held by another request")
)
