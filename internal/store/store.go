// Package store implements the persistent key/value layer BIGSI uses for
// its row and colour stores, backed by go.etcd.io/bbolt. Two Store handles
// are opened per indexed BIGSI: one keyed by row_id holding packed
// BitVector bytes, one keyed by colour holding UTF-8 reference names.
package store

import (
	"encoding/binary"
	"fmt"
	"os"

	"go.etcd.io/bbolt"

	"github.com/will-rowe/antman/internal/errs"
)

// Mode selects how a Store is opened.
type Mode int

const (
	// ModeCreateExclusive opens (creating if necessary) a store for
	// writing; put fails if the key already exists.
	ModeCreateExclusive Mode = iota
	// ModeReadOnly opens an existing store for reads only; the path must
	// already exist.
	ModeReadOnly
)

var bucketName = []byte("kv")

// Store is a single bbolt-backed keyed byte store with fixed-size integer
// keys.
type Store struct {
	db   *bbolt.DB
	mode Mode
}

// Open opens the store at path in the given mode.
func Open(path string, mode Mode) (*Store, error) {
	opts := &bbolt.Options{}
	if mode == ModeReadOnly {
		opts.ReadOnly = true
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("store %s does not exist: %w", path, errs.ErrStoreIOError)
		}
	}

	db, err := bbolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, errs.ErrStoreIOError)
	}

	if mode != ModeReadOnly {
		if err := db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketName)
			return err
		}); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialising store %s: %w", path, errs.ErrStoreIOError)
		}
	}

	return &Store{db: db, mode: mode}, nil
}

func encodeKey(key uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, key)
	return b
}

// Put inserts value under key. In ModeCreateExclusive, a duplicate key is
// an error.
func (s *Store) Put(key uint64, value []byte) error {
	if s.mode == ModeReadOnly {
		return fmt.Errorf("put on read-only store: %w", errs.ErrAccessDenied)
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		k := encodeKey(key)
		if existing := b.Get(k); existing != nil {
			return fmt.Errorf("duplicate key %d", key)
		}
		return b.Put(k, value)
	})
	if err != nil {
		return fmt.Errorf("putting key %d: %w: %v", key, errs.ErrStoreIOError, err)
	}
	return nil
}

// Get fetches the value stored under key. found is false if no such key
// exists; this is not an error.
func (s *Store) Get(key uint64) (value []byte, found bool, err error) {
	dbErr := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return fmt.Errorf("bucket missing")
		}
		v := b.Get(encodeKey(key))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if dbErr != nil {
		return nil, false, fmt.Errorf("reading key %d: %w: %v", key, errs.ErrStoreIOError, dbErr)
	}
	return value, value != nil, nil
}

// Close releases the underlying file handle. bbolt guarantees that all
// writes committed via Update are durable before Close returns; for a
// writable store this is the flush's durability barrier.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing store: %w", errs.ErrStoreIOError)
	}
	return nil
}
