package schemeio

import (
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/primal/scheme"
)

// primerHeader is the header row of the primer TSV.  The Tm column name is
// fixed by existing consumers of the format.
var primerHeader = []string{"name", "seq", "length", "%gc", "tm (use 65)"}

// PrimerRow is one row of the primer TSV.
type PrimerRow struct {
	Name   string  `tsv:"name"`
	Seq    string  `tsv:"seq"`
	Length int     `tsv:"length"`
	GC     float64 `tsv:"%gc"`
	Tm     float64 `tsv:"tm (use 65)"`
}

// WritePrimers writes one TSV row per primer of the scheme, alternates
// included, in region order.
func WritePrimers(w io.Writer, s *scheme.Scheme) error {
	tw := tsv.NewWriter(w)
	for _, col := range primerHeader {
		tw.WriteString(col)
	}
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, c := range s.Primers(true) {
		tw.WriteString(c.Name)
		tw.WriteString(c.Seq)
		tw.WriteInt64(int64(c.Len()))
		tw.WriteFloat64(c.GC, 'f', -1)
		tw.WriteFloat64(c.Tm, 'f', -1)
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// ReadPrimers reads a TSV written by WritePrimers.
func ReadPrimers(r io.Reader) ([]PrimerRow, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	var rows []PrimerRow
	for {
		var row PrimerRow
		err := tr.Read(&row)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, errors.E(errors.Invalid, "primer tsv", err)
		}
		rows = append(rows, row)
	}
}
