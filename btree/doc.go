// Package btree implements a persistent-friendly B+Tree: an in-memory
// ordered map whose nodes are obtained from a pluggable Provider, so the
// same algorithm serves a purely in-memory tree (SimpleProvider) and a
// sack-backed, flush-on-demand tree (package provider).
//
// # Structure
//
// Internal nodes hold up to Order-1 keys and Order children; leaves hold up
// to Order-1 key/value pairs and are linked into a doubly-linked list in
// ascending key order via Prev/Next descriptors, so range scans and
// cursors never need to re-descend from the root.
//
// # Ordering
//
// Routing through an internal node uses a right-biased search (bisect
// right): a key equal to an internal separator routes to the child on the
// separator's right, so every key in the subtree left of a separator is
// strictly less than it. Equality at a leaf uses a left-biased search
// (bisect left).
//
// # Provider
//
// Get/Put/Pop/Range never touch storage directly; they call through a
// Provider, which owns node identity (descriptors), the in-memory cache,
// the dirty set, and node lifecycle (NodeCreate/Release). This mirrors how
// the rest of this module separates algorithm from storage: buddy knows
// nothing of sack, sack knows nothing of btree, and btree knows nothing of
// how its nodes are persisted.
package btree
