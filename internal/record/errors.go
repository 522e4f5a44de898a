package record

import "errors"

// Sentinel errors for record encoding.
var (
	// ErrFieldOverflow is returned when a value cannot be represented in its
	// target field width under the forbid policy.
	ErrFieldOverflow = errors.New("zipstream: field overflow")

	// ErrInvalidVersion is returned when a version pair cannot be encoded in
	// ZIP's single-integer form.
	ErrInvalidVersion = errors.New("zipstream: invalid version")
)
