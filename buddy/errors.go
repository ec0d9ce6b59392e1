package buddy

import "errors"

var (
	// ErrOutOfSpace indicates that no free block large enough was found.
	ErrOutOfSpace = errors.New("buddy: out of space")

	// ErrBadOrder indicates an order outside [0, MaxOrder].
	ErrBadOrder = errors.New("buddy: order out of range")

	// ErrCorrupt indicates malformed allocator state during Load.
	ErrCorrupt = errors.New("buddy: corrupt allocator state")
)
