package scheme

import (
	"context"
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/primal/design"
	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/primer"
)

// minDistinctPrimers is the number of distinct LEFT and of distinct RIGHT
// sequences a design oracle call must return to be used.
const minDistinctPrimers = 3

// searchOutcome is the result of searching for one region.  Exactly one of
// region and reason is set.
type searchOutcome struct {
	region *primer.Region
	// reason explains why no suitable primers were found.
	reason string
	stats  Stats
}

// searcher finds the primers of one region at a time.
type searcher struct {
	opts    Opts
	primary fasta.Record
	oracle  design.Oracle
	thermo  design.Thermo
	scorer  *primer.Scorer
	obs     Observer
}

// window is the part of the primary reference handed to the design oracle.
type window struct {
	start, end int
	// leftLen is the length of the window LEFT primers may start in,
	// relative to start.
	leftLen int
}

func (w window) len() int { return w.end - w.start }

// search moves a window along the primary reference until the design oracle
// returns diverse enough candidates, then scores them and builds the region.
// It returns an error only when an oracle fails.
func (s *searcher) search(ctx context.Context, lim Limits) (searchOutcome, error) {
	var (
		out       searchOutcome
		genomeLen = s.primary.Len()
		chunkSize = s.opts.chunkSize()
		span      = s.opts.searchSpan()
		w         window
		mode      StepMode
	)
	switch {
	case lim.Num == 1:
		w = window{start: 0, end: min(genomeLen, chunkSize)}
		mode = Widen
	case lim.Terminal:
		start := max(lim.Left, genomeLen-chunkSize)
		if start > lim.Right {
			// The last chunk would leave no room for a LEFT primer that
			// overlaps the previous amplicon; start where an interior
			// region would and let the template run to the end.
			start = max(lim.Left, min(genomeLen-chunkSize, lim.Right-span))
		}
		w = window{start: start, end: genomeLen}
		mode = ShiftLeft
	default:
		start := max(lim.Left, lim.Right-s.opts.variationSpan()-s.opts.PrimerMaxSize)
		w = window{start: start, end: min(genomeLen, start+chunkSize)}
		mode = ShiftLeft
	}
	w.leftLen = span
	orig := w

	minProduct, maxProduct := s.opts.productRange()
	for step := 0; ; step++ {
		if step >= s.opts.MaxSteps {
			out.reason = fmt.Sprintf("region %d: no suitable primers within %d design calls", lim.Num, s.opts.MaxSteps)
			return out, nil
		}
		if w.start < 0 || w.start >= w.end {
			out.reason = fmt.Sprintf("region %d: no suitable primers: empty window [%d, %d)", lim.Num, w.start, w.end)
			return out, nil
		}
		var (
			pairs []design.Pair
			err   error
			ev    = DesignEvent{Region: lim.Num, Mode: mode, ChunkStart: w.start, ChunkEnd: w.end}
		)
		leftEnd := min(w.leftLen, w.len())
		// LEFT primers must start at or before the right limit until the
		// search gives up on overlap and moves right.
		if lim.Num > 1 && mode != ShiftRight {
			leftEnd = min(leftEnd, lim.Right-w.start+1)
		}
		if leftEnd <= 0 {
			out.reason = fmt.Sprintf("region %d: no suitable primers: window [%d, %d) starts past the right limit %d",
				lim.Num, w.start, w.end, lim.Right)
			return out, nil
		}
		// A template shorter than the shortest product cannot yield pairs.
		if w.len() >= minProduct {
			req := design.NewRequest(s.opts.params(), s.primary.Seq[w.start:w.end],
				design.Window{Start: 0, End: leftEnd},
				minProduct, maxProduct, s.opts.MaxCandidates)
			began := time.Now()
			pairs, err = s.design(ctx, req)
			ev.Duration = time.Since(began)
			ev.Called = true
			out.stats.DesignCalls++
		}
		ev.Pairs, ev.Err = len(pairs), err
		ev.Diverse = err == nil && diverse(pairs)
		s.obs.DesignCalled(ev)
		if err != nil {
			return out, primer.OracleError("primer design", err)
		}
		if len(pairs) == 0 {
			out.stats.EmptyCalls++
		}
		if ev.Diverse {
			out.region, err = s.buildRegion(ctx, lim, w, pairs, &out.stats)
			return out, err
		}

		switch mode {
		case Widen:
			w.end += s.opts.StepSize
			w.leftLen += s.opts.StepSize
			out.stats.WidenSteps++
		case ShiftLeft:
			if w.start-s.opts.StepSize < lim.Left {
				w = orig
				mode = ShiftRight
				w.start += s.opts.StepSize
				w.end += s.opts.StepSize
				out.stats.RightSteps++
				break
			}
			w.start -= s.opts.StepSize
			w.end -= s.opts.StepSize
			out.stats.LeftSteps++
		case ShiftRight:
			w.start += s.opts.StepSize
			w.end += s.opts.StepSize
			out.stats.RightSteps++
		}
		if mode != ShiftLeft && w.end > genomeLen {
			out.reason = fmt.Sprintf("region %d: no suitable primers: window [%d, %d) passed the end of the genome (%d)",
				lim.Num, w.start, w.end, genomeLen)
			return out, nil
		}
	}
}

func (s *searcher) design(ctx context.Context, req design.Request) ([]design.Pair, error) {
	if s.opts.OracleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.OracleTimeout)
		defer cancel()
	}
	return s.oracle.Design(ctx, req)
}

// diverse reports whether pairs holds enough distinct LEFT and RIGHT
// sequences.
func diverse(pairs []design.Pair) bool {
	left, right := map[string]bool{}, map[string]bool{}
	for _, p := range pairs {
		left[p.Left.Seq] = true
		right[p.Right.Seq] = true
	}
	return len(left) >= minDistinctPrimers && len(right) >= minDistinctPrimers
}

// buildRegion turns the oracle's pairs into scored candidate pairs and picks
// the alternates of the best one.
func (s *searcher) buildRegion(ctx context.Context, lim Limits, w window, designed []design.Pair, stats *Stats) (*primer.Region, error) {
	type key struct {
		dir   primer.Direction
		seq   string
		start int
	}
	var (
		cands = map[key]*primer.Candidate{}
		all   []*primer.Candidate
		pairs []*primer.Pair
	)
	// Pairs often share a primer; each distinct one is aligned once.
	candidate := func(dir primer.Direction, o design.Oligo) *primer.Candidate {
		k := key{dir, o.Seq, w.start + o.Start}
		if c, ok := cands[k]; ok {
			return c
		}
		c := primer.NewCandidate(primer.Primer{
			Direction: dir,
			Name:      primer.Name(s.opts.Prefix, lim.Num, dir),
			Seq:       o.Seq,
			Tm:        o.Tm,
			GC:        o.GC,
		}, k.start)
		cands[k] = c
		all = append(all, c)
		return c
	}
	for _, d := range designed {
		p := &primer.Pair{Left: candidate(primer.Left, d.Left), Right: candidate(primer.Right, d.Right)}
		if p.ProductLength() <= 0 {
			continue
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("region %d: design oracle returned only inverted pairs", lim.Num))
	}
	if err := s.scorer.ScoreAll(ctx, all); err != nil {
		return nil, err
	}
	stats.Candidates += len(all)
	primer.SortPairs(pairs)
	alternates, err := s.selectAlternates(ctx, pairs[0])
	if err != nil {
		return nil, err
	}
	stats.Alternates += len(alternates)
	return primer.NewRegion(lim.Num, pairs, alternates, lim.Terminal)
}
