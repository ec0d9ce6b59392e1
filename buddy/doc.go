// Package buddy implements a power-of-two buddy allocator over an abstract
// address space of size 1<<order.
//
// # Overview
//
// The allocator hands out aligned blocks whose size is always a power of
// two. Each order k in [0, MaxOrder] has its own free list of offsets;
// allocating a block of order k may split a larger free block, and freeing
// a block may coalesce it with its buddy (the block obtained by flipping
// bit k of its offset) to form a free block of order k+1.
//
// # Usage
//
//	a := buddy.New(32) // 4GiB address space
//	off, order, err := a.Alloc(200)
//	if err != nil {
//	    return err
//	}
//	// ... use the block at [off, off+1<<order) ...
//	a.Free(off, order)
//
// # Persistence
//
// Save/Load round-trip the free-list state byte-exactly, so an allocator
// can be serialized inside another container (see package sack) and
// restored later without losing any free-space bookkeeping.
package buddy
