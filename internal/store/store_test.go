package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/will-rowe/antman/internal/bitvector"
	"github.com/will-rowe/antman/internal/errs"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "rows.bdb"), ModeCreateExclusive)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Put(42, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	v, found, err := s.Get(42)
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(v) != "hello" {
		t.Fatalf("Get(42) = %q, %v, want hello, true", v, found)
	}
}

func TestGetMissingKeyNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "rows.bdb"), ModeCreateExclusive)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_, found, err := s.Get(7)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected found=false for missing key")
	}
}

func TestPutDuplicateKeyFails(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "rows.bdb"), ModeCreateExclusive)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Put(1, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(1, []byte("b")); !errors.Is(err, errs.ErrStoreIOError) {
		t.Fatalf("duplicate Put err = %v, want ErrStoreIOError", err)
	}
}

func TestReadOnlyOpenRequiresExistingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(filepath.Join(dir, "missing.bdb"), ModeReadOnly); !errors.Is(err, errs.ErrStoreIOError) {
		t.Fatalf("read-only open of missing file err = %v, want ErrStoreIOError", err)
	}
}

func TestReadOnlyPutFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.bdb")
	s, err := Open(path, ModeCreateExclusive)
	if err != nil {
		t.Fatal(err)
	}
	s.Put(1, []byte("a"))
	s.Close()

	ro, err := Open(path, ModeReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()
	if err := ro.Put(2, []byte("b")); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("Put on read-only store err = %v, want ErrAccessDenied", err)
	}
}

func TestBitVectorCodecRoundTrip(t *testing.T) {
	bv, _ := bitvector.New(37)
	bv.Set(0, 1)
	bv.Set(36, 1)
	bv.Set(10, 1)

	encoded := EncodeBitVector(bv)
	decoded, err := DecodeBitVector(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Capacity() != bv.Capacity() || decoded.Count() != bv.Count() {
		t.Fatalf("decoded (cap=%d,count=%d) != original (cap=%d,count=%d)",
			decoded.Capacity(), decoded.Count(), bv.Capacity(), bv.Count())
	}
	for i := uint64(0); i < bv.Capacity(); i++ {
		want, _ := bv.Get(i)
		got, _ := decoded.Get(i)
		if want != got {
			t.Fatalf("bit %d: want %d, got %d", i, want, got)
		}
	}
}

func TestBitVectorCodecRejectsTamperedPopcount(t *testing.T) {
	bv, _ := bitvector.New(8)
	bv.Set(0, 1)
	encoded := EncodeBitVector(bv)
	encoded[8] = 99 // corrupt the popcount field
	if _, err := DecodeBitVector(encoded); !errors.Is(err, errs.ErrMetadataParseError) {
		t.Fatalf("DecodeBitVector with tampered popcount err = %v, want ErrMetadataParseError", err)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := Metadata{
		DBDirectory:    dir,
		MetadataFile:   MetadataFilename,
		Bitvectors:     BitvectorsFilename,
		Colours:        ColoursFilename,
		NumBits:        2000,
		NumHashes:      7,
		ColourIterator: 2,
	}
	if err := WriteMetadata(dir, m); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMetadata(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Fatalf("ReadMetadata() = %+v, want %+v", got, m)
	}
}

func TestReadMetadataMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadMetadata(dir); !errors.Is(err, errs.ErrStoreIOError) {
		t.Fatalf("ReadMetadata on empty dir err = %v, want ErrStoreIOError", err)
	}
}
