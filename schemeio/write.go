package schemeio

import (
	"context"
	"io"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/scheme"
)

// Outputs names the files WriteAll produces.  Empty names are skipped.
type Outputs struct {
	BED        string
	Primers    string
	Snapshot   string
	Refs       string
	RefsIndex  string
	Alignments string
}

// DefaultOutputs returns the standard file names for a scheme named prefix
// in directory dir.
func DefaultOutputs(dir, prefix string) Outputs {
	base := filepath.Join(dir, prefix)
	return Outputs{
		BED:        base + ".bed",
		Primers:    base + ".tsv",
		Snapshot:   base + ".rio",
		Refs:       base + ".fasta",
		RefsIndex:  base + ".fasta.fai",
		Alignments: base + ".alignments.tsv",
	}
}

// WriteAll writes every non-empty output of out.  runID is recorded in the
// snapshot.
func WriteAll(ctx context.Context, out Outputs, s *scheme.Scheme, runID string) error {
	var once errors.Once
	write := func(path string, fn func(io.Writer) error) {
		if path == "" {
			return
		}
		log.Debug.Printf("writing %s", path)
		once.Set(writeFile(ctx, path, fn))
	}
	write(out.BED, func(w io.Writer) error { return WriteBED(w, s) })
	write(out.Primers, func(w io.Writer) error { return WritePrimers(w, s) })
	write(out.Snapshot, func(w io.Writer) error { return WriteSnapshot(w, s, runID) })
	write(out.Alignments, func(w io.Writer) error { return WriteAlignmentReport(w, s) })
	if out.Refs != "" {
		once.Set(WriteRefs(ctx, out.Refs, out.RefsIndex, s.Refs))
	}
	return once.Err()
}

// WriteRefs writes the reference panel to path in FASTA format, and its
// index to indexPath unless that is empty.
func WriteRefs(ctx context.Context, path, indexPath string, refs []fasta.Record) (err error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if indexPath == "" {
		return fasta.Write(dst.Writer(ctx), nil, refs, fasta.DefaultLineWidth)
	}
	idx, err := file.Create(ctx, indexPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, idx, &err)
	return fasta.Write(dst.Writer(ctx), idx.Writer(ctx), refs, fasta.DefaultLineWidth)
}

// OpenSnapshot reads the snapshot stored at path.
func OpenSnapshot(ctx context.Context, path string) (s *scheme.Scheme, info SnapshotInfo, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, info, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	return ReadSnapshot(in.Reader(ctx))
}

func writeFile(ctx context.Context, path string, fn func(io.Writer) error) (err error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	return fn(dst.Writer(ctx))
}
