package fasta

import (
	"bufio"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// DefaultLineWidth is the number of bases per line used by Write.
const DefaultLineWidth = 60

// Write writes recs to out in FASTA format, wrapping sequences at lineWidth
// bases.  If idx is non-nil, a samtools-compatible index (*.fai) describing
// the written bytes is emitted to it.
//
// The index format is defined by "samtool faidx"
// (http://www.htslib.org/doc/faidx.html): "<name>\t<length>\t<byte
// offset>\t<bases per line>\t<bytes per line>".
func Write(out io.Writer, idx io.Writer, recs []Record, lineWidth int) (err error) {
	if lineWidth <= 0 {
		lineWidth = DefaultLineWidth
	}
	var (
		w      = bufio.NewWriter(out)
		tsvOut *tsv.Writer
		cumOff int64
		once   errors.Once
	)
	if idx != nil {
		tsvOut = tsv.NewWriter(idx)
	}
	write := func(s string) {
		n, e := w.WriteString(s)
		cumOff += int64(n)
		once.Set(e)
	}
	for _, rec := range recs {
		write(">")
		write(rec.ID)
		if rec.Description != "" {
			write(" ")
			write(rec.Description)
		}
		write("\n")
		if tsvOut != nil {
			lineBases := lineWidth
			if rec.Len() < lineBases {
				lineBases = rec.Len()
			}
			tsvOut.WriteString(rec.ID)
			tsvOut.WriteInt64(int64(rec.Len()))
			tsvOut.WriteInt64(cumOff)
			tsvOut.WriteInt64(int64(lineBases))
			tsvOut.WriteInt64(int64(lineBases + 1))
			once.Set(tsvOut.EndLine())
		}
		for off := 0; off < rec.Len(); off += lineWidth {
			write(rec.Get(off, off+lineWidth))
			write("\n")
		}
	}
	once.Set(w.Flush())
	if tsvOut != nil {
		once.Set(tsvOut.Flush())
	}
	return once.Err()
}
