package domain

import "errors"

var (
	// ErrMalformedDocument marks a listing document missing a required field
	// or carrying the wrong shape.
	ErrMalformedDocument = errors.New("malformed listing document")

	// ErrMalformedNumeric marks a numeric string that failed to normalize.
	ErrMalformedNumeric = errors.New("malformed numeric value")
)
