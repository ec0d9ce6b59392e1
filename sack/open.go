package sack

import (
	"fmt"
	"os"
)

// Mode selects how OpenFile opens the backing file.
type Mode byte

const (
	// ModeRead opens an existing file read-only. The file must exist.
	ModeRead Mode = 'r'
	// ModeWrite opens an existing file read/write. The file must exist.
	ModeWrite Mode = 'w'
	// ModeCreate opens an existing file read/write, creating it (and a new
	// sack of the given order) if it doesn't exist.
	ModeCreate Mode = 'c'
	// ModeNew always truncates and creates a new file and a new sack of
	// the given order.
	ModeNew Mode = 'n'
)

// OpenFile opens or creates path as a Sack, honoring the open-mode
// semantics of the Mode constants: 'r' read-only (file must
// exist), 'w' read/write (file must exist), 'c' read/write create-if-
// missing, 'n' always truncate and create new. 'c' and 'n' require order.
func OpenFile(path string, mode Mode, order int) (*Sack, *os.File, error) {
	switch mode {
	case ModeRead:
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return nil, nil, err
		}
		s, err := Open(f, 0, true)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return s, f, nil

	case ModeWrite:
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return nil, nil, err
		}
		s, err := Open(f, 0, false)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return s, f, nil

	case ModeCreate:
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return createFile(path, order)
		} else if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return nil, nil, err
		}
		s, err := Open(f, 0, false)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return s, f, nil

	case ModeNew:
		return createFile(path, order)

	default:
		return nil, nil, fmt.Errorf("sack: %w: unsupported mode %q", ErrBadArgument, mode)
	}
}

func createFile(path string, order int) (*Sack, *os.File, error) {
	if order <= 0 {
		return nil, nil, fmt.Errorf("sack: %w: order required to create a sack", ErrBadArgument)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, err
	}
	if _, err := f.WriteAt(make([]byte, headerSize), 0); err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	s, err := New(f, 0, order)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if err := s.Flush(); err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return s, f, nil
}

// Memory is an in-memory Stream, useful for tests and purely transient
// stores. It grows automatically on WriteAt past its current length.
type Memory struct {
	buf []byte
}

// NewMemory returns an empty in-memory stream.
func NewMemory() *Memory {
	return &Memory{}
}

// ReadAt implements io.ReaderAt.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off) > len(m.buf) {
		return 0, fmt.Errorf("sack: memory stream: read at %d out of range (len %d)", off, len(m.buf))
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, fmt.Errorf("sack: memory stream: short read at %d", off)
	}
	return n, nil
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("sack: memory stream: negative offset")
	}
	end := int(off) + len(p)
	if end > len(m.buf) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:end], p)
	return len(p), nil
}

// Sync is a no-op for the in-memory stream, satisfying the optional
// Sync() error interface Sack.Flush looks for.
func (m *Memory) Sync() error {
	return nil
}

// Bytes returns the current contents of the in-memory stream.
func (m *Memory) Bytes() []byte {
	return m.buf
}
