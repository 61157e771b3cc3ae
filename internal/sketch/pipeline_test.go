package sketch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/will-rowe/antman/internal/bigsi"
	"github.com/will-rowe/antman/internal/bloom"
	"github.com/will-rowe/antman/internal/errs"
	"github.com/will-rowe/antman/internal/logx"
	"github.com/will-rowe/antman/internal/store"
)

func TestBuildReferencesProducesOneFilterPerSequence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refs.fasta")
	if err := os.WriteFile(path, []byte(">ref1\nACGTACGTACGTACGTACGT\n>ref2\nTTGGCCAATTGGCCAATTGG\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := uint64(2000)
	k := bloom.KForM(m, 2000)

	filters, err := BuildReferences(path, m, k, 11, logx.NopSink{})
	if err != nil {
		t.Fatal(err)
	}
	if len(filters) != 2 {
		t.Fatalf("got %d filters, want 2", len(filters))
	}
	for name, f := range filters {
		if f.Popcount() == 0 {
			t.Fatalf("filter for %s has zero popcount", name)
		}
	}
}

func TestQueryFileReportsHitsAgainstBuiltIndex(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "refs.fasta")
	refSeq := "ACGTACGTACGTTGCATGCATGCATCGATCGATCGTAGCTAGCTAGCTTTAGCGATCGATGCTAGCTAGCATGC"
	if err := os.WriteFile(refPath, []byte(">ref1\n"+refSeq+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := uint64(20000)
	k := bloom.KForM(m, 1000)
	kmerSize := 21

	filters, err := BuildReferences(refPath, m, k, kmerSize, logx.NopSink{})
	if err != nil {
		t.Fatal(err)
	}

	b, err := bigsi.NewBuilder(m, k, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Add(filters, len(filters)); err != nil {
		t.Fatal(err)
	}
	idx, err := b.Index()
	if err != nil {
		t.Fatal(err)
	}

	queryPath := filepath.Join(dir, "reads.fastq")
	// A read identical to a 30bp window of the reference should match.
	readSeq := refSeq[10:40]
	if err := os.WriteFile(queryPath, []byte("@matching\n"+readSeq+"\n+\n"+string(make([]byte, len(readSeq)))+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reports, err := QueryFile(queryPath, idx, kmerSize, logx.NopSink{})
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	if reports[0].ReadName != "matching" {
		t.Fatalf("report name = %q", reports[0].ReadName)
	}
	if len(reports[0].Hits) == 0 {
		t.Fatal("expected at least one colour hit for a read drawn from the reference")
	}
	foundRef1 := false
	for _, h := range reports[0].Hits {
		if h.Colour == 0 && h.Count > 0 {
			foundRef1 = true
		}
	}
	if !foundRef1 {
		t.Fatal("expected colour 0 (ref1) to have a positive hit count")
	}
}

func TestQueryFileNeverMutatesIndex(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "refs.fasta")
	if err := os.WriteFile(refPath, []byte(">ref1\nACGTACGTACGTACGTACGTACGT\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := uint64(4096)
	k := bloom.KForM(m, 1000)

	filters, err := BuildReferences(refPath, m, k, 11, logx.NopSink{})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := bigsi.NewBuilder(m, k, 2)
	b.Add(filters, len(filters))
	idx, err := b.Index()
	if err != nil {
		t.Fatal(err)
	}
	before := idx.NumColours()

	queryPath := filepath.Join(dir, "q.fastq")
	os.WriteFile(queryPath, []byte("@r\nGGGGCCCCAAAATTTT\n+\nIIIIIIIIIIIIIIII\n"), 0o644)

	if _, err := QueryFile(queryPath, idx, 11, logx.NopSink{}); err != nil {
		t.Fatal(err)
	}
	if idx.NumColours() != before {
		t.Fatalf("NumColours changed after query: %d -> %d", before, idx.NumColours())
	}
}

// TestQueryFileAbortsOnStoreCorruption simulates a BIGSI whose metadata
// claims more rows than were ever persisted (as if the row store were
// truncated or corrupted): hashes that select one of the phantom rows make
// bigsi.Index.Query return ErrBigsiMissingRow, which QueryFile must treat as
// fatal for the whole file rather than silently skipping the k-mer.
func TestQueryFileAbortsOnStoreCorruption(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "refs.fasta")
	if err := os.WriteFile(refPath, []byte(">ref1\nACGTACGTACGTACGTACGTACGT\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := uint64(256)
	k := bloom.KForM(m, 1000)

	filters, err := BuildReferences(refPath, m, k, 11, logx.NopSink{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := bigsi.NewBuilder(m, k, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Add(filters, len(filters)); err != nil {
		t.Fatal(err)
	}
	idx, err := b.Index()
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Flush(dir); err != nil {
		t.Fatal(err)
	}

	meta, err := store.ReadMetadata(dir)
	if err != nil {
		t.Fatal(err)
	}
	meta.NumBits *= 4 // claim rows that were never written
	if err := store.WriteMetadata(dir, meta); err != nil {
		t.Fatal(err)
	}

	loaded, err := bigsi.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()

	queryPath := filepath.Join(dir, "q.fastq")
	if err := os.WriteFile(queryPath, []byte("@r\nACGTACGTACGTACGTACGTACGT\n+\nIIIIIIIIIIIIIIIIIIIIIIII\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = QueryFile(queryPath, loaded, 11, logx.NopSink{})
	if err == nil {
		t.Fatal("expected QueryFile to abort on store corruption")
	}
	if !errors.Is(err, errs.ErrBigsiMissingRow) {
		t.Fatalf("err = %v, want ErrBigsiMissingRow", err)
	}
}
