// Package nthash implements a canonical, rolling, multi-hash k-mer kernel in
// the shape of Mohamadi et al.'s ntHash: a forward rolling hash and a
// reverse-complement rolling hash are maintained side by side as the k-mer
// window slides one base at a time, and the canonical hash of a k-mer is the
// smaller of the two. The package is pure: it does no I/O and allocates
// nothing per step beyond the caller-visible hash tuple.
package nthash

import (
	"fmt"
	"math/bits"

	"github.com/will-rowe/antman/internal/errs"
)

// MaxK is the largest supported k-mer size.
const MaxK = 31

// multiseed is the odd constant used to derive the N-1 auxiliary hash
// channels from the canonical hash, following ntHash's multiseed extension
// (rotate-and-XOR derivation rather than N independent hash functions).
const multiseed = 0x9E3779B97F4A7C15 // golden-ratio constant, odd

// seedTab holds one 64-bit seed per base code (A=0, C=1, G=2, T=3).
var seedTab = [4]uint64{
	0x3c8bfbb395c60474, // A
	0x3193c18562a02b4c, // C
	0x20323ed082572324, // G
	0x295549f54be24456, // T
}

func baseCode(b byte) (uint64, bool) {
	switch b {
	case 'A', 'a':
		return 0, true
	case 'C', 'c':
		return 1, true
	case 'G', 'g':
		return 2, true
	case 'T', 't':
		return 3, true
	default:
		return 0, false
	}
}

func rol(x uint64, n int) uint64 { return bits.RotateLeft64(x, n) }
func ror(x uint64, n int) uint64 { return bits.RotateLeft64(x, -n) }

// Iterator walks the canonical k-mers of a sequence, producing an N-tuple
// of rolling hash values per step. Zero value is not usable; construct with
// New.
type Iterator struct {
	seq []byte
	k   int
	n   int

	i    int // index of the next unread base in seq
	run  int // count of consecutive valid bases accumulated so far
	win  []uint64

	fwd uint64
	rev uint64

	start  int
	end    bool
	hashes []uint64
}

// New returns an Iterator over seq's k-mers, each mapped to an N-tuple of
// hash values. k must be in [1,31] and no greater than len(seq); numHashes
// must be >= 1.
func New(seq []byte, k, numHashes int) (*Iterator, error) {
	if k < 1 || k > MaxK {
		return nil, fmt.Errorf("k-mer size %d outside [1,%d]: %w", k, MaxK, errs.ErrHashKernelInvalidK)
	}
	if numHashes < 1 {
		return nil, fmt.Errorf("numHashes %d must be >= 1: %w", numHashes, errs.ErrConfigInvalid)
	}
	if k > len(seq) {
		return nil, fmt.Errorf("k-mer size %d exceeds sequence length %d: %w", k, len(seq), errs.ErrHashKernelInvalidK)
	}
	it := &Iterator{
		seq:    seq,
		k:      k,
		n:      numHashes,
		win:    make([]uint64, k),
		hashes: make([]uint64, numHashes),
	}
	return it, nil
}

// End reports whether the iterator has exhausted the sequence.
func (it *Iterator) End() bool { return it.end }

// Pos returns the start offset in the original sequence of the k-mer the
// most recent Next() call produced.
func (it *Iterator) Pos() int { return it.start }

// Hashes returns the current N-tuple. The returned slice is owned by the
// iterator and is overwritten by the next call to Next(); copy it if the
// caller needs to retain it across steps.
func (it *Iterator) Hashes() []uint64 { return it.hashes }

// Next advances to the next non-palindromic k-mer built entirely from
// {A,C,G,T} bases and computes its hash tuple. It returns false once the
// sequence is exhausted, at which point End() reports true.
func (it *Iterator) Next() bool {
	k := it.k
	for it.i < len(it.seq) {
		code, ok := baseCode(it.seq[it.i])
		if !ok {
			it.run = 0
			it.i++
			continue
		}

		if it.run < k {
			it.win[it.run] = code
			it.run++
			it.i++
			if it.run != k {
				continue
			}
			it.fwd, it.rev = computeFresh(it.win)
		} else {
			out := it.win[0]
			copy(it.win, it.win[1:])
			it.win[k-1] = code
			it.fwd = rol(it.fwd, 1) ^ rol(seedTab[out], k) ^ seedTab[code]
			it.rev = ror(it.rev, 1) ^ ror(seedTab[3-out], 1) ^ rol(seedTab[3-code], k-1)
			it.i++
		}

		if isPalindromeWindow(it.win) {
			continue
		}

		it.start = it.i - k
		it.fillHashes()
		return true
	}
	it.end = true
	return false
}

func isPalindromeWindow(win []uint64) bool {
	k := len(win)
	for i := 0; i < k/2; i++ {
		if win[i] != 3-win[k-1-i] {
			return false
		}
	}
	if k%2 == 1 {
		// a middle base is never self-complementary (A<->T, C<->G all
		// pair with a different base), so an odd-length window is never
		// a palindrome.
		return false
	}
	return true
}

func computeFresh(win []uint64) (fwd, rev uint64) {
	k := len(win)
	for i, code := range win {
		fwd ^= rol(seedTab[code], k-1-i)
		rev ^= rol(seedTab[3-code], i)
	}
	return fwd, rev
}

func (it *Iterator) fillHashes() {
	canonical := it.fwd
	if it.rev < it.fwd {
		canonical = it.rev
	}
	it.hashes[0] = canonical
	for i := 1; i < it.n; i++ {
		it.hashes[i] = rol(canonical, i) ^ (multiseed * uint64(i))
	}
}
