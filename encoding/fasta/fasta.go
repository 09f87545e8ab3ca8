// Package fasta reads and writes the reference panels used for scheme design.
// FASTA files consist of a number of named sequences that may be interrupted
// by newlines.  For example:
//
// >MN908947.3
// ACGTAC
// GAGGAC
// GCG
// >MT020880.1
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appear after a space is kept as the
// record description.  For example, '>chr1 A viral sequence' has ID 'chr1'.
//
// The first record of a panel is the primary reference: all scheme coordinates
// are expressed relative to it.
package fasta

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/primal/dna"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const (
	bufferInitSize = 1024 * 1024 * 300 // 300 MB
)

// Record is a single named sequence.  Seq is upper-cased on read.
type Record struct {
	ID          string
	Description string
	Seq         string
}

// Len returns the number of bases in the record.
func (r Record) Len() int { return len(r.Seq) }

// Read parses all records from r, in order of appearance.
func Read(r io.Reader) ([]Record, error) {
	var (
		recs    []Record
		cur     *Record
		seq     strings.Builder
		scanner = bufio.NewScanner(r)
	)
	scanner.Buffer(nil, bufferInitSize)
	flush := func() {
		if cur != nil {
			cur.Seq = dna.Normalize(seq.String())
			recs = append(recs, *cur)
			seq.Reset()
		}
	}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			flush()
			header := strings.TrimSpace(line[1:])
			if header == "" {
				return nil, errors.Errorf("malformed FASTA file: empty sequence name")
			}
			cur = &Record{}
			if i := strings.IndexAny(header, " \t"); i >= 0 {
				cur.ID, cur.Description = header[:i], strings.TrimSpace(header[i+1:])
			} else {
				cur.ID = header
			}
			continue
		}
		if cur == nil {
			return nil, errors.Errorf("malformed FASTA file: sequence data before the first header")
		}
		seq.WriteString(strings.TrimSpace(line))
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	flush()
	return recs, nil
}

// ReadPanel parses a reference panel.  In addition to Read, it requires at
// least one record, unique IDs, and non-empty IUPAC-only sequences.
func ReadPanel(r io.Reader) ([]Record, error) {
	recs, err := Read(r)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("empty reference panel")
	}
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		if seen[rec.ID] {
			return nil, errors.Errorf("duplicate sequence name %s", rec.ID)
		}
		seen[rec.ID] = true
		if rec.Len() == 0 {
			return nil, errors.Errorf("sequence %s is empty", rec.ID)
		}
		if !dna.Valid(rec.Seq) {
			return nil, errors.Errorf("sequence %s contains non-nucleotide characters", rec.ID)
		}
	}
	return recs, nil
}

// Open reads a reference panel from path.  Paths ending in ".gz" are
// decompressed on the fly.
func Open(ctx context.Context, path string) (recs []Record, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: gzip", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	recs, err = ReadPanel(r)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return recs, nil
}

// Get returns the subsequence [start, end) of rec.  Both coordinates are
// clamped to the sequence.
func (r Record) Get(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(r.Seq) {
		end = len(r.Seq)
	}
	if end <= start {
		return ""
	}
	return r.Seq[start:end]
}
