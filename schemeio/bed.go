// Package schemeio writes assembled schemes to their on-disk formats: a BED
// file of primer coordinates, a TSV of primer properties, a recordio
// snapshot that can be read back, a copy of the reference panel, and a
// per-reference alignment report.
package schemeio

import (
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/primal/primer"
	"github.com/grailbio/primal/scheme"
)

// WriteBED writes the top pair of every region in BED format:
//
//	<primary ID>\t<start>\t<end>\t<primer name>\t<pool>
//
// with the LEFT primer before the RIGHT one.  Intervals are half-open, so a
// RIGHT primer covers [End(), Start).
func WriteBED(w io.Writer, s *scheme.Scheme) error {
	tw := tsv.NewWriter(w)
	ref := s.Primary().ID
	for _, r := range s.Regions {
		top := r.TopPair()
		for _, c := range []*primer.Candidate{top.Left, top.Right} {
			start, end := c.Start, c.End()
			if c.Direction == primer.Right {
				start, end = end, start
			}
			tw.WriteString(ref)
			tw.WriteInt64(int64(start))
			tw.WriteInt64(int64(end))
			tw.WriteString(c.Name)
			tw.WriteString(r.Pool())
			if err := tw.EndLine(); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}
