// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package primer

import (
	"context"
	goerrors "errors"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/primal/encoding/fasta"
)

// Scorer computes conservation scores of candidates against a reference
// panel.  A Scorer is safe for concurrent use if its Aligner is.
type Scorer struct {
	aligner     Aligner
	refs        []fasta.Record
	parallelism int
}

// NewScorer creates a scorer over refs.  Up to parallelism alignments run at
// once; parallelism <= 0 means runtime.NumCPU().
func NewScorer(aligner Aligner, refs []fasta.Record, parallelism int) *Scorer {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &Scorer{aligner: aligner, refs: refs, parallelism: parallelism}
}

// References returns the panel the scorer aligns against.
func (s *Scorer) References() []fasta.Record { return s.refs }

// Score aligns c against every reference, unless that was done before, and
// returns its score.
func (s *Scorer) Score(ctx context.Context, c *Candidate) (float64, error) {
	if err := s.ScoreAll(ctx, []*Candidate{c}); err != nil {
		return 0, err
	}
	return c.Score(), nil
}

// ScoreAll scores every unscored candidate in cands.  The (candidate,
// reference) alignments run in parallel; each candidate's alignments are
// stored in panel order, so the result does not depend on scheduling.
//
// An aligner error aborts the whole batch and leaves the affected candidates
// unscored.
func (s *Scorer) ScoreAll(ctx context.Context, cands []*Candidate) error {
	var (
		todo []*Candidate
		seen = map[*Candidate]bool{}
	)
	for _, c := range cands {
		if c.Scored() || seen[c] {
			continue
		}
		seen[c] = true
		todo = append(todo, c)
	}
	nRef := len(s.refs)
	if len(todo) == 0 {
		return nil
	}
	if nRef == 0 {
		return errors.E(errors.Invalid, "scoring against an empty reference panel")
	}
	results := make([][]Alignment, len(todo))
	for i := range results {
		results[i] = make([]Alignment, nRef)
	}
	err := traverse.Limit(s.parallelism).Each(len(todo)*nRef, func(i int) error {
		c, ref := todo[i/nRef], s.refs[i%nRef]
		aln, err := s.aligner.Align(ctx, Query{Seq: c.Seq, Direction: c.Direction, Start: c.Start}, ref)
		if err != nil {
			return OracleError("alignment", err)
		}
		aln.RefID = ref.ID
		results[i/nRef][i%nRef] = aln
		return nil
	})
	if err != nil {
		return err
	}
	for i, c := range todo {
		c.setAlignments(results[i])
	}
	return nil
}

// OracleError wraps a failure of an external oracle.  Deadline overruns are
// reported with errors.Timeout, everything else with errors.Unavailable.
func OracleError(oracle string, err error) error {
	kind := errors.Unavailable
	if goerrors.Is(err, context.DeadlineExceeded) || errors.Is(errors.Timeout, err) {
		kind = errors.Timeout
	}
	return errors.E(kind, oracle+" oracle failed", err)
}
