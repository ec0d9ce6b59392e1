package sack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/aslpavel/sackdb/buddy"
)

const (
	headerSize       = 16 // alloc descriptor (8) + cell descriptor (8)
	recordHeaderSize = 4  // little-endian uint32 length prefix
)

// Stream is the byte-addressable backing store a Sack writes records into.
// *os.File satisfies it; so does the growable in-memory Memory stream (see
// NewMemory in open.go).
type Stream interface {
	io.ReaderAt
	io.WriterAt
}

// Sack places variable-length, opaque records at allocator-chosen offsets
// within a seekable stream and hands back a Descriptor that can later
// retrieve, update, or free that record. It is not safe for concurrent use.
type Sack struct {
	stream   Stream
	base     int64 // byte offset of this sack's header within stream
	readOnly bool

	alloc     *buddy.Allocator
	allocDesc Descriptor
	cellDesc  Descriptor

	cell *Cell
}

// New creates a brand-new Sack at base within stream, with an address space
// of size 1<<order. The caller is responsible for eventually calling Flush.
func New(stream Stream, base int64, order int) (*Sack, error) {
	if order < 0 || order > MaxOrder {
		return nil, fmt.Errorf("sack: %w: order %d out of range", ErrBadArgument, order)
	}
	s := &Sack{
		stream: stream,
		base:   base,
		alloc:  buddy.New(order),
	}
	s.cell = newCell(s, NoDescriptor)
	return s, nil
}

// Open restores a Sack previously written at base within stream.
func Open(stream Stream, base int64, readOnly bool) (*Sack, error) {
	var hdr [headerSize]byte
	if _, err := stream.ReadAt(hdr[:], base); err != nil {
		return nil, fmt.Errorf("sack: read header: %w", err)
	}

	s := &Sack{
		stream:    stream,
		base:      base,
		readOnly:  readOnly,
		allocDesc: Descriptor(binary.BigEndian.Uint64(hdr[0:8])),
		cellDesc:  Descriptor(binary.BigEndian.Uint64(hdr[8:16])),
	}

	allocBytes, err := s.Get(s.allocDesc)
	if err != nil {
		return nil, fmt.Errorf("sack: restore allocator: %w", err)
	}
	a, err := buddy.Load(bytes.NewReader(allocBytes))
	if err != nil {
		return nil, fmt.Errorf("sack: %w: allocator state", ErrCorrupt)
	}
	s.alloc = a

	cell, err := loadCell(s, s.cellDesc)
	if err != nil {
		return nil, err
	}
	s.cell = cell

	return s, nil
}

// ReadOnly reports whether this Sack rejects mutating calls.
func (s *Sack) ReadOnly() bool {
	return s.readOnly
}

// Cell returns the sack's cell directory.
func (s *Sack) Cell() *Cell {
	return s.cell
}

// Push writes data, returning its descriptor. If prev is given (non-zero)
// and data plus the record header fits within prev's block capacity, the
// record is rewritten in place and prev is returned unchanged. Otherwise a
// new block is allocated (and prev, if any, is freed) and the returned
// descriptor differs from prev.
func (s *Sack) Push(data []byte, prev Descriptor) (Descriptor, error) {
	if s.readOnly {
		return 0, ErrReadOnly
	}

	if !prev.IsNone() && len(data) <= prev.Capacity() {
		if err := s.writeRecord(prev, data); err != nil {
			return 0, err
		}
		return prev, nil
	}

	if !prev.IsNone() {
		s.alloc.Free(prev.Offset(), prev.Order())
	}

	off, order, err := s.alloc.Alloc(len(data) + recordHeaderSize)
	if err != nil {
		return 0, err
	}
	desc := NewDescriptor(off, order)

	if err := s.writeRecord(desc, data); err != nil {
		s.alloc.Free(off, order)
		return 0, err
	}
	return desc, nil
}

// Reserve pre-commits an allocation for size bytes of payload without
// writing it, using the same in-place-vs-relocate sizing rule as Push.
// Callers that need the descriptor before the payload is fully known (e.g.
// because the payload embeds sibling descriptors) use Reserve, then a later
// Push(data, reservedDesc) to fill it in.
func (s *Sack) Reserve(size int, prev Descriptor) (Descriptor, error) {
	if s.readOnly {
		return 0, ErrReadOnly
	}
	if !prev.IsNone() && size <= prev.Capacity() {
		return prev, nil
	}
	if !prev.IsNone() {
		s.alloc.Free(prev.Offset(), prev.Order())
	}
	off, order, err := s.alloc.Alloc(size + recordHeaderSize)
	if err != nil {
		return 0, err
	}
	return NewDescriptor(off, order), nil
}

// Get reads back the payload written at desc.
func (s *Sack) Get(desc Descriptor) ([]byte, error) {
	if desc.IsNone() {
		return nil, nil
	}
	var lenBuf [recordHeaderSize]byte
	at := s.base + headerSize + int64(desc.Offset())
	if _, err := s.stream.ReadAt(lenBuf[:], at); err != nil {
		return nil, fmt.Errorf("sack: read record header at %d: %w", desc.Offset(), err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if int(n) > desc.Capacity() {
		return nil, fmt.Errorf("sack: %w: record length %d exceeds capacity %d", ErrCorrupt, n, desc.Capacity())
	}
	data := make([]byte, n)
	if n > 0 {
		if _, err := s.stream.ReadAt(data, at+recordHeaderSize); err != nil {
			return nil, fmt.Errorf("sack: read record payload at %d: %w", desc.Offset(), err)
		}
	}
	return data, nil
}

// Pop reads back the payload at desc and frees the block.
func (s *Sack) Pop(desc Descriptor) ([]byte, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	data, err := s.Get(desc)
	if err != nil {
		return nil, err
	}
	if !desc.IsNone() {
		s.alloc.Free(desc.Offset(), desc.Order())
	}
	return data, nil
}

// writeRecord writes the 4-byte length prefix and payload for desc.
func (s *Sack) writeRecord(desc Descriptor, data []byte) error {
	at := s.base + headerSize + int64(desc.Offset())
	var lenBuf [recordHeaderSize]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := s.stream.WriteAt(lenBuf[:], at); err != nil {
		return fmt.Errorf("sack: write record header: %w", err)
	}
	if len(data) > 0 {
		if _, err := s.stream.WriteAt(data, at+recordHeaderSize); err != nil {
			return fmt.Errorf("sack: write record payload: %w", err)
		}
	}
	return nil
}

// Flush persists the cell directory, the allocator state, and the 16-byte
// sack header, then syncs the stream if it supports it.
//
// Serializing the allocator can itself relocate the allocator's own record
// (freeing the old block and allocating a new one, which changes the free
// map being serialized), so Push is repeated to a fixed point: once the
// returned descriptor stops changing, the on-disk allocator state
// accurately describes itself.
func (s *Sack) Flush() error {
	if s.readOnly {
		return ErrReadOnly
	}

	if err := s.cell.flush(); err != nil {
		return err
	}
	s.cellDesc = s.cell.desc

	for {
		var buf bytes.Buffer
		if err := s.alloc.Save(&buf); err != nil {
			return fmt.Errorf("sack: serialize allocator: %w", err)
		}
		desc, err := s.Push(buf.Bytes(), s.allocDesc)
		if err != nil {
			return fmt.Errorf("sack: persist allocator: %w", err)
		}
		if desc == s.allocDesc {
			s.allocDesc = desc
			break
		}
		s.allocDesc = desc
	}

	var hdr [headerSize]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(s.allocDesc))
	binary.BigEndian.PutUint64(hdr[8:16], uint64(s.cellDesc))
	if _, err := s.stream.WriteAt(hdr[:], s.base); err != nil {
		return fmt.Errorf("sack: write header: %w", err)
	}

	if syncer, ok := s.stream.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("sack: sync: %w", err)
		}
	}
	return nil
}

// UsedSpace reports the number of bytes currently allocated in the data
// region, for diagnostics.
func (s *Sack) UsedSpace() uint64 {
	return s.alloc.UsedSpace()
}
