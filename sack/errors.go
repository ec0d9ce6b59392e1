package sack

import "errors"

var (
	// ErrReadOnly is returned by mutating calls on a read-only Sack.
	ErrReadOnly = errors.New("sack: read-only")

	// ErrBadArgument indicates a missing or invalid required parameter.
	ErrBadArgument = errors.New("sack: bad argument")

	// ErrCorrupt indicates a decoding failure or an out-of-range descriptor.
	ErrCorrupt = errors.New("sack: corrupt")
)
