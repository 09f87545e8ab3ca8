// Package schemetest provides deterministic stand-ins for the design and
// alignment oracles, for testing code that assembles schemes.
package schemetest

import (
	"context"
	"math/rand"
	"sync"

	"github.com/grailbio/primal/design"
	"github.com/grailbio/primal/dna"
	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/primer"
)

// DefaultPrimerLen is the length of the primers Tiler designs unless told
// otherwise.
const DefaultPrimerLen = 20

// Tiler is a design.Oracle that takes primers verbatim from the template.
// Pair k has its LEFT primer at offset LeftWindow.Start+k and its RIGHT primer
// ending k bases before the farthest position the product range allows.
// On a non-repetitive template every pair is therefore distinct.
type Tiler struct {
	PrimerLen int
	// Far places pair k's LEFT primer k bases before the last position the
	// left window and the minimum product allow, and its RIGHT primer the
	// product range beyond it.
	Far bool

	mu       sync.Mutex
	requests []design.Request
}

// Design implements design.Oracle.
func (t *Tiler) Design(ctx context.Context, req design.Request) ([]design.Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()

	n := t.PrimerLen
	if n == 0 {
		n = DefaultPrimerLen
	}
	tmpl := req.Template
	reach := req.LeftWindow.Start + req.MaxProduct - 1
	if reach > len(tmpl) {
		reach = len(tmpl)
	}
	var pairs []design.Pair
	for k := 0; k < req.NumReturn; k++ {
		lo, re := req.LeftWindow.Start+k, reach-k
		if t.Far {
			last := min(req.LeftWindow.End-1, len(tmpl)-req.MinProduct)
			lo, re = last-k, min(len(tmpl), last+req.MaxProduct-1)-k
			if lo < req.LeftWindow.Start {
				break
			}
		}
		if lo >= req.LeftWindow.End || re-lo+1 < req.MinProduct || re-n < lo+n {
			break
		}
		left, right := tmpl[lo:lo+n], dna.ReverseComplement(tmpl[re-n:re])
		pairs = append(pairs, design.Pair{
			Left:  design.Oligo{Start: lo, Seq: left, Tm: 60, GC: dna.GCPercent(left)},
			Right: design.Oligo{Start: re, Seq: right, Tm: 60, GC: dna.GCPercent(right)},
		})
	}
	return pairs, nil
}

// Requests returns the requests received so far.
func (t *Tiler) Requests() []design.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]design.Request(nil), t.requests...)
}

// OracleFunc adapts a function to design.Oracle.
type OracleFunc func(ctx context.Context, req design.Request) ([]design.Pair, error)

// Design implements design.Oracle.
func (f OracleFunc) Design(ctx context.Context, req design.Request) ([]design.Pair, error) {
	return f(ctx, req)
}

// Empty is a design.Oracle that never finds a pair.
var Empty = OracleFunc(func(ctx context.Context, req design.Request) ([]design.Pair, error) {
	return nil, nil
})

// Blocking is a design.Oracle that waits until its context is done.
var Blocking = OracleFunc(func(ctx context.Context, req design.Request) ([]design.Pair, error) {
	<-ctx.Done()
	return nil, ctx.Err()
})

// Aligner is a primer.Aligner that compares a primer with the reference at
// exactly its position on the primary reference, without gaps.  It suits
// panels whose members differ from the primary by substitutions only.
type Aligner struct{}

var _ primer.Aligner = Aligner{}

// Align implements primer.Aligner.
func (Aligner) Align(ctx context.Context, q primer.Query, ref fasta.Record) (primer.Alignment, error) {
	if err := ctx.Err(); err != nil {
		return primer.Alignment{}, err
	}
	n := len(q.Seq)
	start, end := q.Start, q.Start+n
	if q.Direction == primer.Right {
		start, end = q.Start-n, q.Start
	}
	if n == 0 || start < 0 || end > ref.Len() {
		return primer.Alignment{RefID: ref.ID}, nil
	}
	site := ref.Seq[start:end]
	if q.Direction == primer.Right {
		site = dna.ReverseComplement(site)
	}
	matches := 0
	for i := 0; i < n; i++ {
		if dna.TemplateMatch(q.Seq[i], site[i]) {
			matches++
		}
	}
	aln := primer.Alignment{
		RefID:    ref.ID,
		Found:    true,
		Start:    start,
		End:      end,
		Identity: 100 * float64(matches) / float64(n),
		Query:    q.Seq,
		Ref:      site,
		MM3Prime: !dna.TemplateMatch(q.Seq[n-1], site[n-1]),
	}
	if q.Direction == primer.Right {
		aln.Start, aln.End = end, start
	}
	return aln, nil
}

// RandomGenome returns a random ACGT sequence of length n.
func RandomGenome(seed int64, n int) string {
	r := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	for i := range b {
		b[i] = "ACGT"[r.Intn(4)]
	}
	return string(b)
}

// Substitute returns seq with the base at pos replaced by a different one.
func Substitute(seq string, pos int) string {
	b := []byte(seq)
	if b[pos] == 'A' {
		b[pos] = 'C'
	} else {
		b[pos] = 'A'
	}
	return string(b)
}
