// Package bigsi implements the Bit-Sliced Genomic Signature Index: a
// transposed bit-matrix of Bloom-filter signatures. A Builder accumulates
// per-reference Bloom filters as columns; calling Index transposes them
// into an Index, which answers "which references contain this k-mer"
// queries by ANDing together the K rows a k-mer's hashes select.
package bigsi

import (
	"fmt"
	"sync"

	"github.com/will-rowe/antman/internal/bitvector"
	"github.com/will-rowe/antman/internal/bloom"
	"github.com/will-rowe/antman/internal/errs"
)

// Builder holds the Building-state, in-memory column store of a BIGSI
// under construction. Add and Index serialise on an internal mutex, but
// build is single-threaded by contract.
type Builder struct {
	mu sync.Mutex

	m          uint64
	k          int
	maxColours uint64

	columns      []*bitvector.BitVector
	nameOfColour []string
	colourOfName map[string]uint64

	reserved uint64
	indexed  bool
}

// NewBuilder allocates an empty Builder targeting Bloom filters of M bits
// and K hash functions, with room for at most maxColours references.
func NewBuilder(m uint64, k int, maxColours uint64) (*Builder, error) {
	if m == 0 {
		return nil, fmt.Errorf("bigsi M must be > 0: %w", errs.ErrConfigInvalid)
	}
	if k < 1 {
		return nil, fmt.Errorf("bigsi K must be >= 1: %w", errs.ErrConfigInvalid)
	}
	if maxColours == 0 {
		return nil, fmt.Errorf("bigsi max colour count must be > 0: %w", errs.ErrConfigInvalid)
	}
	return &Builder{
		m:            m,
		k:            k,
		maxColours:   maxColours,
		colourOfName: make(map[string]uint64),
	}, nil
}

// M returns the configured Bloom filter bit width.
func (b *Builder) M() uint64 { return b.m }

// K returns the configured Bloom filter hash count.
func (b *Builder) K() int { return b.k }

// Add consumes entries (reference name -> Bloom filter) into the column
// store. expectedCount must equal len(entries); the mismatch check exists
// so callers that build entries incrementally (e.g. streaming a file) are
// caught if their own accounting drifts from what they actually handed in.
func (b *Builder) Add(entries map[string]*bloom.Filter, expectedCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexed {
		return fmt.Errorf("add called after index(): %w", errs.ErrBigsiAlreadyIndexed)
	}
	if expectedCount < 0 {
		return fmt.Errorf("negative expectedCount: %w", errs.ErrConfigInvalid)
	}

	// Allocation policy: first call reserves expectedCount columns; later
	// calls grow by expectedCount more. Since Go slices grow themselves,
	// this is expressed as a capacity hint via append, not a hard cap.
	if cap(b.columns)-len(b.columns) < expectedCount {
		grown := make([]*bitvector.BitVector, len(b.columns), uint64(len(b.columns))+uint64(expectedCount))
		copy(grown, b.columns)
		b.columns = grown
		grownNames := make([]string, len(b.nameOfColour), uint64(len(b.nameOfColour))+uint64(expectedCount))
		copy(grownNames, b.nameOfColour)
		b.nameOfColour = grownNames
	}

	consumed := 0
	for name, filter := range entries {
		if _, exists := b.colourOfName[name]; exists {
			return fmt.Errorf("reference %q already present: %w", name, errs.ErrBigsiDuplicateName)
		}
		if filter.K() != b.k {
			return fmt.Errorf("filter K=%d does not match bigsi K=%d: %w", filter.K(), b.k, errs.ErrBigsiHashCountMismatch)
		}
		if filter.M() != b.m {
			return fmt.Errorf("filter M=%d does not match bigsi M=%d: %w", filter.M(), b.m, errs.ErrBigsiCapacityMismatch)
		}
		if filter.Popcount() == 0 {
			return fmt.Errorf("filter for %q is empty: %w", name, errs.ErrBigsiEmptyFilter)
		}

		colour := uint64(len(b.columns))
		if colour >= b.maxColours {
			return fmt.Errorf("colour count would exceed maximum %d: %w", b.maxColours, errs.ErrAllocationFailed)
		}

		b.columns = append(b.columns, bitvector.Clone(filter.BitVector()))
		b.nameOfColour = append(b.nameOfColour, name)
		b.colourOfName[name] = colour
		consumed++
	}

	if consumed != expectedCount {
		return fmt.Errorf("consumed %d entries, expected %d: %w", consumed, expectedCount, errs.ErrConfigInvalid)
	}
	b.reserved += uint64(expectedCount)
	return nil
}

// Index performs the build-to-indexed transpose: for each row r in [0,M),
// it scans every column's bit r into a fresh row BitVector of capacity
// NumColours. The returned Index is in-memory only; call Flush to persist
// it. Index may be called at most once per Builder.
func (b *Builder) Index() (*Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexed {
		return nil, fmt.Errorf("index() called twice: %w", errs.ErrBigsiAlreadyIndexed)
	}
	numColours := uint64(len(b.columns))
	if numColours == 0 {
		return nil, fmt.Errorf("index() requires at least one column: %w", errs.ErrConfigInvalid)
	}

	rows := make(map[uint64]*bitvector.BitVector, b.m)
	for r := uint64(0); r < b.m; r++ {
		row, err := bitvector.New(numColours)
		if err != nil {
			return nil, fmt.Errorf("allocating row %d: %w", r, err)
		}
		for c := uint64(0); c < numColours; c++ {
			v, err := b.columns[c].Get(r)
			if err != nil {
				return nil, fmt.Errorf("reading column %d bit %d: %w", c, r, err)
			}
			if v == 1 {
				if err := row.Set(c, 1); err != nil {
					return nil, fmt.Errorf("transposing row %d colour %d: %w", r, c, err)
				}
			}
		}
		rows[r] = row
	}

	colourNames := make(map[uint64]string, numColours)
	for c, name := range b.nameOfColour {
		colourNames[uint64(c)] = name
	}

	b.indexed = true
	b.columns = nil
	b.colourOfName = nil

	return &Index{
		m:           b.m,
		k:           b.k,
		numColours:  numColours,
		rows:        rows,
		colourNames: colourNames,
	}, nil
}
