// Package align is the built-in alignment oracle.  It places a primer on a
// reference with an affine-gap, semi-global alignment: the whole primer must
// align, but the reference may be entered and left anywhere within a search
// window around the primer's expected position.
package align

import (
	"context"

	"github.com/grailbio/primal/dna"
	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/primer"
)

// Opts configures the aligner.  Scores follow the usual convention: Match is
// positive, the others are negative.
type Opts struct {
	// Pad is the number of reference bases searched on each side of the
	// primer's expected position.
	Pad int
	// Match and Mismatch score aligned base pairs.  IUPAC codes in the primer
	// match any base they stand for; ambiguous or masked reference bases
	// (N, R, ...) always mismatch.
	Match, Mismatch int
	// GapOpen is charged for the first base of a gap, GapExtend for each
	// further one.
	GapOpen, GapExtend int
}

// DefaultOpts are the scores primal has always used: +2/-1 with -2 to open a
// gap and -1 to extend it, searching 100 bases either side.
var DefaultOpts = Opts{
	Pad:       100,
	Match:     2,
	Mismatch:  -1,
	GapOpen:   -2,
	GapExtend: -1,
}

// Aligner implements primer.Aligner.  It holds no mutable state and is safe
// for concurrent use.
type Aligner struct {
	opts Opts
}

var _ primer.Aligner = (*Aligner)(nil)

// New creates an aligner.
func New(opts Opts) *Aligner {
	return &Aligner{opts: opts}
}

// Align implements primer.Aligner.
func (a *Aligner) Align(ctx context.Context, q primer.Query, ref fasta.Record) (primer.Alignment, error) {
	if err := ctx.Err(); err != nil {
		return primer.Alignment{}, err
	}
	n := len(q.Seq)
	if n == 0 {
		return primer.Alignment{RefID: ref.ID}, nil
	}
	var ws, we int
	if q.Direction == primer.Left {
		ws, we = q.Start-a.opts.Pad, q.Start+n+a.opts.Pad
	} else {
		ws, we = q.Start-n-a.opts.Pad, q.Start+a.opts.Pad
	}
	if ws < 0 {
		ws = 0
	}
	if we > ref.Len() {
		we = ref.Len()
	}
	if we <= ws {
		return primer.Alignment{RefID: ref.ID}, nil
	}
	target := ref.Seq[ws:we]
	if q.Direction == primer.Right {
		target = dna.ReverseComplement(target)
	}
	r := a.semiGlobal(dna.Normalize(q.Seq), target)

	aln := primer.Alignment{
		RefID:    ref.ID,
		Found:    true,
		Query:    r.query,
		Ref:      r.ref,
		Identity: r.identity(),
		MM3Prime: r.mm3Prime(),
	}
	if q.Direction == primer.Left {
		aln.Start, aln.End = ws+r.refStart, ws+r.refEnd
	} else {
		aln.Start, aln.End = we-r.refStart, we-r.refEnd
	}
	return aln, nil
}

// result is an alignment in target coordinates.  query and ref have equal
// length and may contain '-'.
type result struct {
	query, ref       string
	refStart, refEnd int
}

func (r result) identity() float64 {
	if len(r.query) == 0 {
		return 0
	}
	matches := 0
	for i := 0; i < len(r.query); i++ {
		if dna.TemplateMatch(r.query[i], r.ref[i]) {
			matches++
		}
	}
	return 100 * float64(matches) / float64(len(r.query))
}

// mm3Prime reports whether the last query base is unmatched.  The alignment
// always ends on a query base, so a trailing gap can only be in the
// reference.
func (r result) mm3Prime() bool {
	n := len(r.query)
	return n > 0 && !dna.TemplateMatch(r.query[n-1], r.ref[n-1])
}

const (
	stateM = iota // q[i-1] aligned to t[j-1]
	stateX        // q[i-1] aligned to a gap
	stateY        // t[j-1] aligned to a gap
)

// semiGlobal aligns all of q against a substring of t (Gotoh's algorithm with
// free end gaps in t).  Ties are broken towards matches and towards the
// leftmost end position, so results are deterministic.
func (a *Aligner) semiGlobal(q, t string) result {
	n, m := len(q), len(t)
	var (
		mm = newMatrix(n+1, m+1, negInf)
		xm = newMatrix(n+1, m+1, negInf)
		ym = newMatrix(n+1, m+1, negInf)
	)
	sub := func(i, j int) int {
		if dna.TemplateMatch(q[i-1], t[j-1]) {
			return a.opts.Match
		}
		return a.opts.Mismatch
	}
	for j := 0; j <= m; j++ {
		mm.set(0, j, 0)
	}
	for i := 1; i <= n; i++ {
		xm.set(i, 0, a.opts.GapOpen+(i-1)*a.opts.GapExtend)
		for j := 1; j <= m; j++ {
			mm.set(i, j, sub(i, j)+max3(mm.at(i-1, j-1), xm.at(i-1, j-1), ym.at(i-1, j-1)))
			xm.set(i, j, max3(mm.at(i-1, j)+a.opts.GapOpen, xm.at(i-1, j)+a.opts.GapExtend, ym.at(i-1, j)+a.opts.GapOpen))
			ym.set(i, j, max3(mm.at(i, j-1)+a.opts.GapOpen, ym.at(i, j-1)+a.opts.GapExtend, xm.at(i, j-1)+a.opts.GapOpen))
		}
	}

	bestJ, bestState, best := 0, stateX, xm.at(n, 0)
	for j := 1; j <= m; j++ {
		if v := mm.at(n, j); v > best {
			bestJ, bestState, best = j, stateM, v
		}
		if v := xm.at(n, j); v > best {
			bestJ, bestState, best = j, stateX, v
		}
	}

	var (
		qa, ta = make([]byte, 0, n+8), make([]byte, 0, n+8)
		i, j   = n, bestJ
		state  = bestState
	)
	for i > 0 {
		switch state {
		case stateM:
			v := mm.at(i, j) - sub(i, j)
			qa, ta = append(qa, q[i-1]), append(ta, t[j-1])
			i, j = i-1, j-1
			switch {
			case i == 0 || mm.at(i, j) == v:
				state = stateM
			case xm.at(i, j) == v:
				state = stateX
			default:
				state = stateY
			}
		case stateX:
			v := xm.at(i, j)
			qa, ta = append(qa, q[i-1]), append(ta, '-')
			i--
			switch {
			case i == 0 || mm.at(i, j)+a.opts.GapOpen == v:
				state = stateM
			case xm.at(i, j)+a.opts.GapExtend == v:
				state = stateX
			default:
				state = stateY
			}
		case stateY:
			v := ym.at(i, j)
			qa, ta = append(qa, '-'), append(ta, t[j-1])
			j--
			switch {
			case mm.at(i, j)+a.opts.GapOpen == v:
				state = stateM
			case ym.at(i, j)+a.opts.GapExtend == v:
				state = stateY
			default:
				state = stateX
			}
		}
	}
	reverse(qa)
	reverse(ta)
	return result{query: string(qa), ref: string(ta), refStart: j, refEnd: bestJ}
}

func reverse(b []byte) {
	for i, k := 0, len(b)-1; i < k; i, k = i+1, k-1 {
		b[i], b[k] = b[k], b[i]
	}
}
