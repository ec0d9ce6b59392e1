// Package sack maps opaque byte-string records to stable descriptors over a
// seekable byte stream, backed by a buddy allocator (package buddy).
//
// # Layout
//
// From the stream's base offset:
//
//	[0:16)   header: alloc descriptor (8 bytes BE), cell descriptor (8 bytes BE)
//	[16:)    data region, addressed by the buddy allocator
//
// A record occupies a sack-allocated block: a 4-byte little-endian length
// prefix followed by that many bytes of payload. The block's usable
// capacity is (1<<order)-4.
//
// # Descriptors
//
// A Descriptor is a 64-bit value encoding (offset, order): the low 8 bits
// hold order, the remaining 56 bits hold offset. Descriptor 0 means "no
// record".
//
// # Cells
//
// The Sack also owns a small sparse directory of byte strings (Cell),
// persisted as a single sack record and addressed by the cell descriptor in
// the header. Higher layers (package btree, package provider) use cells to
// publish well-known roots.
package sack
