package domain

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the keeper or owner
	// role required for the requested operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrOutOfRange is returned when a numeric input violates its documented
	// domain, e.g. a raw score above 100.
	ErrOutOfRange = errors.New("out of range")

	// ErrInvalidConfiguration is returned when a structural input is invalid:
	// an empty principal or a staleness threshold below the minimum.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
