package btree

import "errors"

var (
	// ErrNotFound is returned by Get/Pop when the key is absent.
	ErrNotFound = errors.New("btree: key not found")

	// ErrCorrupt indicates a structural invariant was violated while
	// descending the tree (e.g. a node failed to decode).
	ErrCorrupt = errors.New("btree: corrupt structure")
)
