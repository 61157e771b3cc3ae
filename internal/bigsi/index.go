package bigsi

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/will-rowe/antman/internal/bitvector"
	"github.com/will-rowe/antman/internal/errs"
	"github.com/will-rowe/antman/internal/store"
)

// Index answers queries against a transposed BIGSI matrix. It is either
// in-memory (freshly produced by Builder.Index, not yet flushed) or
// store-backed (reconstructed by Load). Flush closes its stores and drops
// the in-memory rows, and Query on a flushed instance fails. A row-level cache
// is maintained for store-backed instances since the same row_id recurs
// heavily within a single query file.
type Index struct {
	mu sync.RWMutex

	m          uint64
	k          int
	numColours uint64

	// In-memory, Indexed (pre-flush) state.
	rows        map[uint64]*bitvector.BitVector
	colourNames map[uint64]string

	// Store-backed, Loaded state.
	rowStore    *store.Store
	colourStore *store.Store
	rowCache    sync.Map // row_id -> *bitvector.BitVector

	flushed bool
}

// M returns the Bloom filter bit width this index was built for.
func (idx *Index) M() uint64 { return idx.m }

// K returns the Bloom filter hash count this index was built for.
func (idx *Index) K() int { return idx.k }

// NumColours returns the number of references held in the index.
func (idx *Index) NumColours() uint64 { return idx.numColours }

// Query ANDs together the K rows selected by hashes and writes the result
// into result, which must have capacity NumColours and popcount 0 on
// entry. It returns early (with result cleared) the moment any fetched row
// has popcount 0, or the accumulator's popcount reaches 0 after an AND —
// both cases mean no reference can possibly match.
func (idx *Index) Query(hashes []uint64, result *bitvector.BitVector) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.flushed {
		return fmt.Errorf("query on a flushed index: %w", errs.ErrBigsiUnindexed)
	}
	if len(hashes) != idx.k {
		return fmt.Errorf("query needs %d hashes, got %d: %w", idx.k, len(hashes), errs.ErrConfigInvalid)
	}
	if result.Capacity() != idx.numColours {
		return fmt.Errorf("result capacity %d != NumColours %d: %w", result.Capacity(), idx.numColours, errs.ErrConfigInvalid)
	}
	if result.Count() != 0 {
		return fmt.Errorf("result must have popcount 0 on entry: %w", errs.ErrNullArgument)
	}

	for i, h := range hashes {
		rowID := h % idx.m
		row, err := idx.fetchRow(rowID)
		if err != nil {
			return err
		}
		if row.Count() == 0 {
			result.Clear()
			return nil
		}
		if i == 0 {
			if err := result.OrInto(row); err != nil {
				return err
			}
		} else {
			if err := result.AndInto(row); err != nil {
				return err
			}
		}
		if result.Count() == 0 {
			return nil
		}
	}
	return nil
}

func (idx *Index) fetchRow(rowID uint64) (*bitvector.BitVector, error) {
	if idx.rows != nil {
		row, ok := idx.rows[rowID]
		if !ok {
			return nil, fmt.Errorf("row %d missing from in-memory index: %w", rowID, errs.ErrBigsiMissingRow)
		}
		return row, nil
	}

	if cached, ok := idx.rowCache.Load(rowID); ok {
		return cached.(*bitvector.BitVector), nil
	}

	buf, found, err := idx.rowStore.Get(rowID)
	if err != nil {
		return nil, fmt.Errorf("fetching row %d: %w", rowID, err)
	}
	if !found {
		return nil, fmt.Errorf("row %d missing from store: %w", rowID, errs.ErrBigsiMissingRow)
	}
	row, err := store.DecodeBitVector(buf)
	if err != nil {
		return nil, fmt.Errorf("decoding row %d: %w", rowID, err)
	}
	idx.rowCache.Store(rowID, row)
	return row, nil
}

// Lookup returns the reference name for a colour.
func (idx *Index) Lookup(colour uint64) (string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if colour >= idx.numColours {
		return "", fmt.Errorf("colour %d >= NumColours %d: %w", colour, idx.numColours, errs.ErrBigsiColourOutOfRange)
	}
	if idx.colourNames != nil {
		name, ok := idx.colourNames[colour]
		if !ok {
			return "", fmt.Errorf("colour %d missing from in-memory names: %w", colour, errs.ErrBigsiMissingRow)
		}
		return name, nil
	}
	buf, found, err := idx.colourStore.Get(colour)
	if err != nil {
		return "", fmt.Errorf("fetching name for colour %d: %w", colour, err)
	}
	if !found {
		return "", fmt.Errorf("colour %d missing from store: %w", colour, errs.ErrBigsiMissingRow)
	}
	name := buf
	if n := len(name); n > 0 && name[n-1] == 0 {
		name = name[:n-1]
	}
	return string(name), nil
}

// Flush persists an in-memory Indexed instance to dir: the row store, the
// colour store and the metadata sidecar, in that order, then closes both
// stores and releases the in-memory rows. The instance is unusable
// after Flush returns; reopen it with Load.
func (idx *Index) Flush(dir string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.flushed {
		return fmt.Errorf("flush called on an already-flushed index: %w", errs.ErrBigsiUnindexed)
	}
	if idx.rows == nil {
		return fmt.Errorf("flush requires an in-memory Indexed instance: %w", errs.ErrBigsiUnindexed)
	}

	rowStorePath := filepath.Join(dir, store.BitvectorsFilename)
	colourStorePath := filepath.Join(dir, store.ColoursFilename)

	rowStore, err := store.Open(rowStorePath, store.ModeCreateExclusive)
	if err != nil {
		return fmt.Errorf("opening row store: %w", err)
	}
	for r := uint64(0); r < idx.m; r++ {
		row, ok := idx.rows[r]
		if !ok {
			rowStore.Close()
			return fmt.Errorf("row %d missing during flush: %w", r, errs.ErrBigsiMissingRow)
		}
		if err := rowStore.Put(r, store.EncodeBitVector(row)); err != nil {
			rowStore.Close()
			return fmt.Errorf("persisting row %d: %w", r, err)
		}
	}

	colourStore, err := store.Open(colourStorePath, store.ModeCreateExclusive)
	if err != nil {
		rowStore.Close()
		return fmt.Errorf("opening colour store: %w", err)
	}
	for c := uint64(0); c < idx.numColours; c++ {
		name, ok := idx.colourNames[c]
		if !ok {
			rowStore.Close()
			colourStore.Close()
			return fmt.Errorf("colour %d missing during flush: %w", c, errs.ErrBigsiMissingRow)
		}
		value := append([]byte(name), 0)
		if err := colourStore.Put(c, value); err != nil {
			rowStore.Close()
			colourStore.Close()
			return fmt.Errorf("persisting colour %d: %w", c, err)
		}
	}

	meta := store.Metadata{
		DBDirectory:    dir,
		MetadataFile:   store.MetadataFilename,
		Bitvectors:     store.BitvectorsFilename,
		Colours:        store.ColoursFilename,
		NumBits:        idx.m,
		NumHashes:      idx.k,
		ColourIterator: idx.numColours,
	}
	if err := store.WriteMetadata(dir, meta); err != nil {
		rowStore.Close()
		colourStore.Close()
		return fmt.Errorf("writing metadata: %w", err)
	}

	if err := rowStore.Close(); err != nil {
		colourStore.Close()
		return err
	}
	if err := colourStore.Close(); err != nil {
		return err
	}

	idx.rows = nil
	idx.colourNames = nil
	idx.flushed = true
	return nil
}

// Load reconstructs a read-only, store-backed Index from a previously
// flushed directory.
func Load(dir string) (*Index, error) {
	meta, err := store.ReadMetadata(dir)
	if err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}

	rowStore, err := store.Open(filepath.Join(dir, meta.Bitvectors), store.ModeReadOnly)
	if err != nil {
		return nil, fmt.Errorf("opening row store: %w", err)
	}
	colourStore, err := store.Open(filepath.Join(dir, meta.Colours), store.ModeReadOnly)
	if err != nil {
		rowStore.Close()
		return nil, fmt.Errorf("opening colour store: %w", err)
	}

	return &Index{
		m:           meta.NumBits,
		k:           meta.NumHashes,
		numColours:  meta.ColourIterator,
		rowStore:    rowStore,
		colourStore: colourStore,
	}, nil
}

// Close releases a Loaded index's store handles. It is a no-op error-wise
// on an already-flushed or never-store-backed instance.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	var firstErr error
	if idx.rowStore != nil {
		if err := idx.rowStore.Close(); err != nil {
			firstErr = err
		}
		idx.rowStore = nil
	}
	if idx.colourStore != nil {
		if err := idx.colourStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		idx.colourStore = nil
	}
	return firstErr
}
