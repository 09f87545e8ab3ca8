package schemeio

import (
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/primal/scheme"
)

var reportHeader = []string{"primer", "ref", "found", "start", "end", "identity", "mm3prime", "query", "matches", "site"}

// WriteAlignmentReport writes one TSV row for every pair of primer, alternates
// included, and reference, showing how the primer aligned: its coordinates,
// percent identity, whether the 3' base mismatched, and the aligned primer
// and reference strings with a match line between them.
func WriteAlignmentReport(w io.Writer, s *scheme.Scheme) error {
	tw := tsv.NewWriter(w)
	for _, col := range reportHeader {
		tw.WriteString(col)
	}
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, c := range s.Primers(true) {
		for _, a := range c.Alignments() {
			tw.WriteString(c.Name)
			tw.WriteString(a.RefID)
			if !a.Found {
				tw.WriteString("false")
				for i := 3; i < len(reportHeader); i++ {
					tw.WriteString("")
				}
			} else {
				tw.WriteString("true")
				tw.WriteInt64(int64(a.Start))
				tw.WriteInt64(int64(a.End))
				tw.WriteFloat64(a.Identity, 'f', 2)
				if a.MM3Prime {
					tw.WriteString("true")
				} else {
					tw.WriteString("false")
				}
				tw.WriteString(a.Query)
				tw.WriteString(a.Matches())
				tw.WriteString(a.Ref)
			}
			if err := tw.EndLine(); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}
