package buddy

import (
	"bufio"
	"encoding/binary"
	"io"
	"math/bits"
	"sort"
)

// Allocator is a power-of-two buddy allocator managing an address space of
// size 1<<MaxOrder. It is not safe for concurrent use.
type Allocator struct {
	maxOrder int
	free     [][]uint64 // free[k]: sorted, ascending offsets of blocks sized 1<<k
}

// New creates an allocator for an address space of size 1<<maxOrder, with
// the entire space free.
func New(maxOrder int) *Allocator {
	free := make([][]uint64, maxOrder+1)
	free[maxOrder] = []uint64{0}
	return &Allocator{maxOrder: maxOrder, free: free}
}

// MaxOrder returns the allocator's order; the address space size is
// 1<<MaxOrder().
func (a *Allocator) MaxOrder() int {
	return a.maxOrder
}

// AllocOrder allocates a single block of exactly order k, splitting a
// larger free block if necessary.
func (a *Allocator) AllocOrder(order int) (uint64, error) {
	if order < 0 || order > a.maxOrder {
		return 0, ErrBadOrder
	}

	j := order
	for j <= a.maxOrder && len(a.free[j]) == 0 {
		j++
	}
	if j > a.maxOrder {
		return 0, ErrOutOfSpace
	}

	block := a.free[j][0]
	a.free[j] = a.free[j][1:]

	for j > order {
		j--
		a.insert(j, block+(uint64(1)<<uint(j)))
	}
	return block, nil
}

// Alloc allocates a block able to hold size bytes and returns its offset
// and order. size==0 is treated as size==1 (order 0).
func (a *Allocator) Alloc(size int) (uint64, int, error) {
	if size < 1 {
		size = 1
	}
	order := bits.Len(uint(size - 1))
	if order > a.maxOrder {
		return 0, order, ErrOutOfSpace
	}
	off, err := a.AllocOrder(order)
	return off, order, err
}

// Free releases the block at offset/order, coalescing with its buddy
// repeatedly while the buddy is also free.
func (a *Allocator) Free(offset uint64, order int) {
	for order < a.maxOrder {
		buddy := offset ^ (uint64(1) << uint(order))
		list := a.free[order]
		i := sort.Search(len(list), func(i int) bool { return list[i] >= buddy })
		if i >= len(list) || list[i] != buddy {
			a.insert(order, offset)
			return
		}
		a.free[order] = append(list[:i], list[i+1:]...)
		if offset&(uint64(1)<<uint(order)) != 0 {
			offset = buddy
		}
		order++
	}
	a.free[a.maxOrder] = append(a.free[a.maxOrder], offset)
}

// insert places offset into the order's free list, keeping it sorted.
func (a *Allocator) insert(order int, offset uint64) {
	list := a.free[order]
	i := sort.Search(len(list), func(i int) bool { return list[i] >= offset })
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = offset
	a.free[order] = list
}

// UsedSpace returns the number of bytes currently allocated.
func (a *Allocator) UsedSpace() uint64 {
	total := uint64(1) << uint(a.maxOrder)
	free := uint64(0)
	for k, list := range a.free {
		free += uint64(len(list)) * (uint64(1) << uint(k))
	}
	return total - free
}

// Stats reports the number of free blocks at each order, for diagnostics.
type Stats struct {
	MaxOrder  int
	FreeCount []int // FreeCount[k] is the number of free blocks of order k
	Used      uint64
}

// Stats returns a snapshot of the allocator's free-list occupancy.
func (a *Allocator) Stats() Stats {
	counts := make([]int, len(a.free))
	for k, list := range a.free {
		counts[k] = len(list)
	}
	return Stats{MaxOrder: a.maxOrder, FreeCount: counts, Used: a.UsedSpace()}
}

// Save serializes the allocator state: one byte for MaxOrder, then for each
// order a 4-byte LE count, then for each order all of its offsets as 8-byte
// LE integers. It must round-trip byte-exactly through Load.
func (a *Allocator) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte(byte(a.maxOrder)); err != nil {
		return err
	}
	var tmp [8]byte
	for _, list := range a.free {
		binary.LittleEndian.PutUint32(tmp[:4], uint32(len(list)))
		if _, err := bw.Write(tmp[:4]); err != nil {
			return err
		}
	}
	for _, list := range a.free {
		for _, off := range list {
			binary.LittleEndian.PutUint64(tmp[:], off)
			if _, err := bw.Write(tmp[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Load restores an allocator previously written by Save.
func Load(r io.Reader) (*Allocator, error) {
	br := bufio.NewReader(r)
	maxOrderByte, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	maxOrder := int(maxOrderByte)

	counts := make([]int, maxOrder+1)
	var tmp [8]byte
	for k := 0; k <= maxOrder; k++ {
		if _, err := io.ReadFull(br, tmp[:4]); err != nil {
			return nil, ErrCorrupt
		}
		counts[k] = int(binary.LittleEndian.Uint32(tmp[:4]))
	}

	free := make([][]uint64, maxOrder+1)
	for k := 0; k <= maxOrder; k++ {
		list := make([]uint64, counts[k])
		for i := range list {
			if _, err := io.ReadFull(br, tmp[:]); err != nil {
				return nil, ErrCorrupt
			}
			list[i] = binary.LittleEndian.Uint64(tmp[:])
		}
		free[k] = list
	}

	return &Allocator{maxOrder: maxOrder, free: free}, nil
}
