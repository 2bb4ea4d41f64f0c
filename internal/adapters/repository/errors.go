package repository

import "errors"

// Sentinel kinds for distribution storage and file codecs.
var (
	ErrNotFound  = errors.New("distribution not found")
	ErrMalformed = errors.New("malformed file")

	ErrUnavailable = errors.New("store unavailable")
)
