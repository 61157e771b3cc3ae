// Package sketch implements the FASTA/FASTQ record reader and the
// build-time/query-time pipelines that drive the hash kernel over reads
// and references.
package sketch

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/will-rowe/antman/internal/errs"
)

const maxLineBuffer = 1 << 20 // 1MB, matching the teacher's scan buffer size

// Reader scans FASTA or FASTQ records from an underlying file,
// transparently decompressing gzip input. It generalises the teacher's
// bufio.Scanner-based FASTQ-only reader (utils.ReadInSeq) to also accept
// FASTA, since reference files in this design are FASTA while query files
// are FASTQ.
//
// Name and Seq hold the most recently read record after Next() returns
// true, matching the teacher's public-field reader shape.
type Reader struct {
	Name string
	Seq  []byte

	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
	fastq   bool

	pendingHeader string
	havePending   bool
	done          bool
}

// Open opens path, transparently gunzipping files named *.gz, and sniffs
// FASTA ('>') vs FASTQ ('@') from the first record marker.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, errs.ErrStoreIOError)
	}

	var src io.Reader = f
	var gz *gzip.Reader
	if strings.HasSuffix(path, ".gz") {
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, errs.ErrSequenceDecodeError)
		}
		src = gz
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBuffer)

	r := &Reader{file: f, gz: gz, scanner: scanner}
	if !scanner.Scan() {
		r.done = true
		return r, nil
	}
	first := scanner.Text()
	switch {
	case strings.HasPrefix(first, ">"):
		r.fastq = false
	case strings.HasPrefix(first, "@"):
		r.fastq = true
	default:
		f.Close()
		return nil, fmt.Errorf("%s: unrecognised record start %q: %w", path, first, errs.ErrSequenceDecodeError)
	}
	r.pendingHeader = first
	r.havePending = true
	return r, nil
}

// Next reads the next record into Name/Seq, returning false once the file
// is exhausted.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	if r.fastq {
		return r.nextFastq()
	}
	return r.nextFasta()
}

func (r *Reader) nextFastq() bool {
	var header string
	if r.havePending {
		header = r.pendingHeader
		r.havePending = false
	} else if r.scanner.Scan() {
		header = r.scanner.Text()
	} else {
		r.done = true
		return false
	}

	if !r.scanner.Scan() {
		r.done = true
		return false
	}
	seqLine := r.scanner.Text()
	if !r.scanner.Scan() { // '+' separator line
		r.done = true
		return false
	}
	if !r.scanner.Scan() { // quality line, discarded
		r.done = true
		return false
	}

	r.Name = strings.TrimPrefix(header, "@")
	r.Seq = []byte(seqLine)
	return true
}

func (r *Reader) nextFasta() bool {
	var header string
	if r.havePending {
		header = r.pendingHeader
		r.havePending = false
	} else {
		return false // consumed by a previous call's read-ahead, or EOF
	}

	var seq strings.Builder
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if strings.HasPrefix(line, ">") {
			r.pendingHeader = line
			r.havePending = true
			break
		}
		seq.WriteString(line)
	}
	if !r.havePending {
		r.done = true
	}

	r.Name = strings.TrimPrefix(header, ">")
	r.Seq = []byte(seq.String())
	return true
}

// Close releases the underlying file (and gzip stream, if any).
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}
