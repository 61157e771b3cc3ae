// Package bloom implements a Bloom filter over pre-hashed k-mer tuples,
// backed by an internal/bitvector.BitVector. It does not hash sequences
// itself; callers supply K already-computed hash values per element,
// typically produced by internal/nthash.
package bloom

import (
	"fmt"
	"math"

	"github.com/will-rowe/antman/internal/bitvector"
	"github.com/will-rowe/antman/internal/errs"
)

// MinElements is the smallest element count New will size a filter for.
const MinElements = 1000

// MaxFPR is the largest target false-positive rate New will accept.
const MaxFPR = 0.1

// Filter is a Bloom filter of M bits and K hash functions.
type Filter struct {
	m  uint64
	k  int
	bv *bitvector.BitVector
}

// New sizes and allocates a filter for a desired element count E and target
// false-positive rate p, using the standard optimal-parameter formulas:
//
//	M = ceil(E * -ln(p) / ln(2)^2)
//	K = ceil((M/E) * ln(2))
func New(elementCount uint64, fpr float64) (*Filter, error) {
	if elementCount < MinElements {
		return nil, fmt.Errorf("element count %d below minimum %d: %w", elementCount, MinElements, errs.ErrConfigInvalid)
	}
	if fpr <= 0 || fpr > MaxFPR {
		return nil, fmt.Errorf("false-positive rate %g outside (0,%g]: %w", fpr, MaxFPR, errs.ErrConfigInvalid)
	}
	e := float64(elementCount)
	m := uint64(math.Ceil(e * -math.Log(fpr) / (math.Ln2 * math.Ln2)))
	k := int(math.Ceil((float64(m) / e) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return NewMK(m, k)
}

// KForM derives the hash count K for a filter whose bit width M is fixed
// externally (typically because it must match an existing BIGSI's M)
// rather than derived from a target false-positive rate, using the same
// ratio as New: K = ceil((M/E) * ln(2)).
func KForM(m, elementCount uint64) int {
	k := int(math.Ceil((float64(m) / float64(elementCount)) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return k
}

// NewMK allocates a filter with explicit bit-width M and hash count K, used
// when a filter must be bit-compatible with an existing BIGSI.
func NewMK(m uint64, k int) (*Filter, error) {
	if k < 1 {
		return nil, fmt.Errorf("hash count %d must be >= 1: %w", k, errs.ErrConfigInvalid)
	}
	bv, err := bitvector.New(m)
	if err != nil {
		return nil, fmt.Errorf("allocating filter bit vector: %w", err)
	}
	return &Filter{m: m, k: k, bv: bv}, nil
}

// M returns the filter's bit width.
func (f *Filter) M() uint64 { return f.m }

// K returns the filter's hash count.
func (f *Filter) K() int { return f.k }

// Popcount returns the number of set bits in the filter's backing vector.
func (f *Filter) Popcount() uint64 { return f.bv.Count() }

// BitVector exposes the filter's backing BitVector, e.g. for cloning into a
// BIGSI column store.
func (f *Filter) BitVector() *bitvector.BitVector { return f.bv }

// Add sets the K bits hashes[i] mod M for a single element. hashes must have
// at least K entries; only the first K are used. add never clears bits.
func (f *Filter) Add(hashes []uint64) error {
	if len(hashes) < f.k {
		return fmt.Errorf("need %d hash values, got %d: %w", f.k, len(hashes), errs.ErrConfigInvalid)
	}
	for i := 0; i < f.k; i++ {
		if err := f.bv.Set(hashes[i]%f.m, 1); err != nil {
			return fmt.Errorf("setting filter bit: %w", err)
		}
	}
	return nil
}

// Query reports whether all K bits hashes[i] mod M are set. A false result
// proves the element was never added (no false negatives); a true result
// may be a false positive bounded by the filter's target rate while its
// element count stays within the sizing budget.
func (f *Filter) Query(hashes []uint64) (bool, error) {
	if len(hashes) < f.k {
		return false, fmt.Errorf("need %d hash values, got %d: %w", f.k, len(hashes), errs.ErrConfigInvalid)
	}
	for i := 0; i < f.k; i++ {
		v, err := f.bv.Get(hashes[i] % f.m)
		if err != nil {
			return false, fmt.Errorf("reading filter bit: %w", err)
		}
		if v == 0 {
			return false, nil
		}
	}
	return true, nil
}
