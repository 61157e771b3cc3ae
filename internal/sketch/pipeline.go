package sketch

import (
	"errors"
	"fmt"

	"github.com/will-rowe/antman/internal/bigsi"
	"github.com/will-rowe/antman/internal/bitvector"
	"github.com/will-rowe/antman/internal/bloom"
	"github.com/will-rowe/antman/internal/errs"
	"github.com/will-rowe/antman/internal/logx"
	"github.com/will-rowe/antman/internal/nthash"
)

// isStoreCorruption reports whether err indicates the on-disk index itself
// is unreadable (a missing row, or the underlying store erroring out) as
// opposed to a per-k-mer condition (bad shape, out-of-range argument) that
// only affects the single query call.
func isStoreCorruption(err error) bool {
	return errors.Is(err, errs.ErrBigsiMissingRow) || errors.Is(err, errs.ErrStoreIOError)
}

// BuildReferences reads every named sequence out of path (FASTA, optionally
// gzipped), builds one Bloom filter per sequence sized (m,k), and returns
// them keyed by name, ready to hand to bigsi.Builder.Add. A sequence with
// no usable (all-ACGT, non-palindromic) k-mers yields an empty filter,
// which Builder.Add rejects with BigsiEmptyFilter — callers should treat
// that as a per-reference build error, not crash the whole run.
func BuildReferences(path string, m uint64, k, kmerSize int, log logx.Sink) (map[string]*bloom.Filter, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out := make(map[string]*bloom.Filter)
	for r.Next() {
		filter, err := bloom.NewMK(m, k)
		if err != nil {
			return nil, fmt.Errorf("allocating filter for %s: %w", r.Name, err)
		}
		it, err := nthash.New(r.Seq, kmerSize, k)
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", r.Name, err)
		}
		for it.Next() {
			if err := filter.Add(it.Hashes()); err != nil {
				return nil, fmt.Errorf("adding k-mer of %s to filter: %w", r.Name, err)
			}
		}
		out[r.Name] = filter
		if log != nil {
			log.Info(logx.ComponentSketch, "built reference filter", map[string]interface{}{
				"name": r.Name, "popcount": filter.Popcount(),
			})
		}
	}
	return out, nil
}

// Hit counts, per colour, how many of a read's k-mers matched.
type Hit struct {
	Colour uint64
	Count  uint64
}

// QueryReport summarises one read's matches against the index.
type QueryReport struct {
	ReadName string
	KmerSeen int
	Hits     []Hit
}

// QueryFile streams every read in path (FASTQ, optionally gzipped) against
// idx, aggregating per-colour hit counts per read, and returns one report
// per read. A read the hash kernel rejects (e.g. shorter than kmerSize) is
// logged and skipped without a report. It never mutates idx.
func QueryFile(path string, idx *bigsi.Index, kmerSize int, log logx.Sink) ([]QueryReport, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var reports []QueryReport
	result, err := bitvector.New(idx.NumColours())
	if err != nil {
		return nil, fmt.Errorf("allocating query result vector: %w", err)
	}

	for r.Next() {
		it, err := nthash.New(r.Seq, kmerSize, idx.K())
		if err != nil {
			if log != nil {
				log.Warn(logx.ComponentSketch, "skipping read: bad k-mer size", map[string]interface{}{
					"read": r.Name, "error": err.Error(),
				})
			}
			continue
		}

		counts := make(map[uint64]uint64)
		seen := 0
		for it.Next() {
			seen++
			result.Clear()
			if err := idx.Query(it.Hashes(), result); err != nil {
				if isStoreCorruption(err) {
					if log != nil {
						log.Error(logx.ComponentSketch, err, "aborting file: index store corruption", map[string]interface{}{
							"read": r.Name, "pos": it.Pos(), "path": path,
						})
					}
					return reports, fmt.Errorf("querying %s: %w", path, err)
				}
				if log != nil {
					log.Error(logx.ComponentSketch, err, "query failed for k-mer", map[string]interface{}{
						"read": r.Name, "pos": it.Pos(),
					})
				}
				continue
			}
			for c := uint64(0); c < idx.NumColours(); c++ {
				v, _ := result.Get(c)
				if v == 1 {
					counts[c]++
				}
			}
		}

		report := QueryReport{ReadName: r.Name, KmerSeen: seen}
		for c, n := range counts {
			report.Hits = append(report.Hits, Hit{Colour: c, Count: n})
		}
		reports = append(reports, report)
		if log != nil {
			log.Info(logx.ComponentSketch, "read queried", map[string]interface{}{
				"read": r.Name, "kmers": seen, "colours_hit": len(counts),
			})
		}
	}
	return reports, nil
}
