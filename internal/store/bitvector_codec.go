package store

import (
	"encoding/binary"
	"fmt"

	"github.com/will-rowe/antman/internal/bitvector"
	"github.com/will-rowe/antman/internal/errs"
)

// bitVectorHeaderSize is the fixed prefix preceding the packed bit buffer:
// capacity_bits (u64 LE) || popcount (u64 LE).
const bitVectorHeaderSize = 16

// EncodeBitVector serialises bv into the wire format stored as a row
// value: capacity_bits (u64 LE) || popcount (u64 LE) || buffer.
func EncodeBitVector(bv *bitvector.BitVector) []byte {
	buf := bv.Bytes()
	out := make([]byte, bitVectorHeaderSize+len(buf))
	binary.LittleEndian.PutUint64(out[0:8], bv.Capacity())
	binary.LittleEndian.PutUint64(out[8:16], bv.Count())
	copy(out[bitVectorHeaderSize:], buf)
	return out
}

// DecodeBitVector parses the wire format written by EncodeBitVector,
// validating the declared popcount against the buffer's recomputed one.
func DecodeBitVector(data []byte) (*bitvector.BitVector, error) {
	if len(data) < bitVectorHeaderSize {
		return nil, fmt.Errorf("row value too short (%d bytes): %w", len(data), errs.ErrMetadataParseError)
	}
	capacity := binary.LittleEndian.Uint64(data[0:8])
	declaredPopcount := binary.LittleEndian.Uint64(data[8:16])

	bv, err := bitvector.FromBytes(capacity, data[bitVectorHeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("decoding row buffer: %w", err)
	}
	if bv.Count() != declaredPopcount {
		return nil, fmt.Errorf("stored popcount %d does not match recomputed %d: %w",
			declaredPopcount, bv.Count(), errs.ErrMetadataParseError)
	}
	return bv, nil
}
