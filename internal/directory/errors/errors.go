package errors

import "errors"

var (
	ErrNotFound = errors.New("party not found")

	ErrInvalidID = errors.New("invalid party ID format")
)
