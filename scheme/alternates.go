package scheme

import (
	"context"
	"fmt"
	"sort"

	"github.com/grailbio/primal/dna"
	"github.com/grailbio/primal/primer"
)

// variant is a reference-side primer sequence and the number of references
// it was seen in.
type variant struct {
	seq   string
	count int
}

// variants counts the distinct reference-side sequences of c's alignments
// that differ from c itself, most frequent first.  Sequences with ambiguous
// or masked bases are not primers and are skipped.  Ties are broken by
// sequence so that the order does not depend on the panel order.
func variants(c *primer.Candidate) []variant {
	counts := map[string]int{}
	for _, a := range c.Alignments() {
		if !a.Found {
			continue
		}
		seq := dna.StripGaps(a.Ref)
		if seq == c.Seq || !dna.Unambiguous(seq) {
			continue
		}
		counts[seq]++
	}
	vs := make([]variant, 0, len(counts))
	for seq, n := range counts {
		vs = append(vs, variant{seq, n})
	}
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].count != vs[j].count {
			return vs[i].count > vs[j].count
		}
		return vs[i].seq < vs[j].seq
	})
	return vs
}

// selectAlternates returns extra primers for the sites of the top pair where
// more than one reference carries the same variant.  At most
// Opts.MaxAlternates are added per primer; each is scored against the whole
// panel.
func (s *searcher) selectAlternates(ctx context.Context, top *primer.Pair) ([]*primer.Candidate, error) {
	var alternates []*primer.Candidate
	for _, c := range []*primer.Candidate{top.Left, top.Right} {
		k := 0
		for _, v := range variants(c) {
			if k == s.opts.MaxAlternates || v.count <= 1 {
				break
			}
			k++
			p := primer.Primer{
				Direction: c.Direction,
				Name:      fmt.Sprintf("%s_alt%d", c.Name, k),
				Seq:       v.seq,
				GC:        dna.GCPercent(v.seq),
			}
			if s.thermo != nil {
				tm, err := s.thermo.MeltingTemp(ctx, v.seq)
				if err != nil {
					return nil, primer.OracleError("melting temperature", err)
				}
				p.Tm = tm
			}
			alternates = append(alternates, primer.NewCandidate(p, c.Start))
		}
	}
	if err := s.scorer.ScoreAll(ctx, alternates); err != nil {
		return nil, err
	}
	return alternates, nil
}
