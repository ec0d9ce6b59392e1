// Package sackdb is a single-table, embedded, ordered key/value store: a
// B+Tree (package btree) persisted through a sack-backed Provider
// (package provider) over a single file (package sack).
package sackdb

import (
	"fmt"
	"os"

	"github.com/aslpavel/sackdb/btree"
	"github.com/aslpavel/sackdb/provider"
	"github.com/aslpavel/sackdb/sack"
)

const (
	defaultSackOrder = 32 // 4GiB address space
	defaultTreeOrder = 32
	defaultCodecTag  = "SS"
	treeHeaderCell   = 0
)

// Options configures Open/Create. The zero value uses the defaults
// above.
type Options struct {
	// SackOrder sizes the address space as 1<<SackOrder bytes. Ignored
	// when reopening an existing file.
	SackOrder int

	// TreeOrder is the B+Tree's fan-out. Ignored when reopening an
	// existing file.
	TreeOrder int

	// Codec selects the node codec ("SS" or "PP") for a newly created
	// tree. When reopening an existing file, an empty Codec adopts the
	// file's codec and a non-empty one must match it
	// (provider.ErrTypeMismatch otherwise).
	Codec string
}

func (o Options) withDefaults() Options {
	if o.SackOrder <= 0 {
		o.SackOrder = defaultSackOrder
	}
	if o.TreeOrder <= 0 {
		o.TreeOrder = defaultTreeOrder
	}
	if o.Codec == "" {
		o.Codec = defaultCodecTag
	}
	return o
}

// DB is an open store: one sack, one sack-backed provider, one tree.
type DB struct {
	sack     *sack.Sack
	file     *os.File
	provider *provider.SackProvider
	tree     *btree.Tree
	readOnly bool
}

// Open opens or creates path according to mode ('r' read-only, 'w'
// read/write, 'c' create-if-missing, 'n' always-new), mirroring
// sack.Mode.
func Open(path string, mode sack.Mode, opts Options) (*DB, error) {
	requestedCodec := opts.Codec
	opts = opts.withDefaults()

	s, f, err := sack.OpenFile(path, mode, opts.SackOrder)
	if err != nil {
		return nil, fmt.Errorf("sackdb: open %q: %w", path, err)
	}

	// Only enforce a codec match against an existing file when the
	// caller explicitly asked for one; otherwise adopt whatever the file
	// already uses.
	p, err := provider.New(s, treeHeaderCell, opts.TreeOrder, requestedCodec)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sackdb: open provider: %w", err)
	}

	return &DB{
		sack:     s,
		file:     f,
		provider: p,
		tree:     btree.New(p),
		readOnly: s.ReadOnly(),
	}, nil
}

// Create is shorthand for Open with sack.ModeCreate.
func Create(path string, opts Options) (*DB, error) {
	return Open(path, sack.ModeCreate, opts)
}

// Get returns the value stored for key.
func (db *DB) Get(key []byte) ([]byte, error) {
	return db.tree.Get(key)
}

// Has reports whether key is present.
func (db *DB) Has(key []byte) (bool, error) {
	return db.tree.Has(key)
}

// Put inserts or overwrites key/value. Changes are not durable until
// Flush.
func (db *DB) Put(key, value []byte) error {
	if db.readOnly {
		return sack.ErrReadOnly
	}
	return db.tree.Put(key, value)
}

// Pop removes key, returning its former value.
func (db *DB) Pop(key []byte) ([]byte, error) {
	if db.readOnly {
		return nil, sack.ErrReadOnly
	}
	return db.tree.Pop(key)
}

// Range returns a lazy iterator over [low, high); a nil bound is
// unbounded.
func (db *DB) Range(low, high []byte) (*btree.Range, error) {
	return db.tree.Range(low, high)
}

// Cursor returns a forward cursor starting at the first key >= from (or
// the smallest key, if from is nil).
func (db *DB) Cursor(from []byte) (*btree.Cursor, error) {
	return db.tree.Cursor(from)
}

// ReverseCursor returns a backward cursor starting at the last key <=
// from (or the largest key, if from is nil).
func (db *DB) ReverseCursor(from []byte) (*btree.Cursor, error) {
	return db.tree.ReverseCursor(from)
}

// Len returns the number of key/value pairs in the store.
func (db *DB) Len() int64 {
	return db.tree.Len()
}

// Order returns the tree's configured fan-out.
func (db *DB) Order() int {
	return db.tree.Order()
}

// Flush writes every pending change to the backing file. It is a no-op
// on a read-only store.
func (db *DB) Flush() error {
	if db.readOnly {
		return nil
	}
	return db.provider.Flush()
}

// Transaction runs fn, then flushes on success. On error from fn, pending
// changes are left dirty in memory (there is no rollback) and the caller
// should discard the DB.
func (db *DB) Transaction(fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	return db.Flush()
}

// Close flushes (unless the store is read-only) and closes the backing
// file.
func (db *DB) Close() error {
	var flushErr error
	if !db.readOnly {
		flushErr = db.Flush()
	}
	closeErr := db.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
