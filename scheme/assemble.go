// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package scheme assembles tiling amplicon schemes.
//
// Assemble walks the primary reference from left to right.  For each region
// it derives coordinate limits from the two previously committed regions,
// moves a window along the genome until the primer design oracle proposes a
// diverse set of primer pairs, scores the pairs by their conservation across
// the reference panel, and commits the best one.  Consecutive regions go to
// alternating pools and overlap by at least Opts.MinOverlap bases; a region
// never starts before the end of the previous region in the same pool.
//
// Assembly stops after the region anchored to the end of the genome, or
// gracefully, with a partial scheme, when no suitable primers can be found
// for a region.
package scheme

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/primal/design"
	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/primer"
)

// Oracles are the external services a scheme is designed with.
type Oracles struct {
	Design design.Oracle
	Align  primer.Aligner
	// Thermo computes the melting temperatures of alternate primers.  It may
	// be nil, in which case they are left at 0.
	Thermo design.Thermo
}

// Scheme is an assembled tiling scheme.
type Scheme struct {
	// Refs is the reference panel.  Refs[0] is the primary reference that
	// all coordinates refer to.
	Refs []fasta.Record
	// Regions are the committed regions, in genome order.
	Regions []*primer.Region
	// Complete is set when the last region reaches the end of the genome.
	Complete bool
	// StopReason explains why an incomplete scheme stopped.
	StopReason string
	Stats      Stats
}

// Primary returns the reference the scheme was designed on.
func (s *Scheme) Primary() fasta.Record { return s.Refs[0] }

// Assemble designs a scheme on refs[0], scoring primers against all of refs.
//
// A region for which no suitable primers exist ends assembly without an
// error; the returned scheme is then incomplete and carries a StopReason.
// Errors are returned for invalid configurations, with kind errors.Invalid,
// and for oracle failures, with kind errors.Unavailable or errors.Timeout.  In
// the latter case the regions committed so far are returned along with the
// error.
func Assemble(ctx context.Context, refs []fasta.Record, oracles Oracles, opts Opts, obs Observer) (*Scheme, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(refs) == 0 || refs[0].Len() == 0 {
		return nil, errors.E(errors.Invalid, "empty primary reference")
	}
	if oracles.Design == nil || oracles.Align == nil {
		return nil, errors.E(errors.Invalid, "missing design or alignment oracle")
	}
	if obs == nil {
		obs = NopObserver{}
	}
	s := &Scheme{Refs: refs}
	srch := &searcher{
		opts:    opts,
		primary: refs[0],
		oracle:  oracles.Design,
		thermo:  oracles.Thermo,
		scorer:  primer.NewScorer(oracles.Align, refs, opts.Parallelism),
		obs:     obs,
	}
	err := s.assemble(ctx, srch)
	if err != nil && s.StopReason == "" {
		s.StopReason = err.Error()
	}
	obs.Finished(s)
	return s, err
}

func (s *Scheme) assemble(ctx context.Context, srch *searcher) error {
	genomeLen := srch.primary.Len()
	for num := 1; ; num++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var prev, prevSame *primer.Pair
		if n := len(s.Regions); n >= 1 {
			prev = s.Regions[n-1].TopPair()
			if n >= 2 {
				prevSame = s.Regions[n-2].TopPair()
			}
		}
		lim, err := regionLimits(num, prev, prevSame, genomeLen, srch.opts)
		if err != nil {
			return err
		}
		srch.obs.RegionStarted(lim)
		out, err := srch.search(ctx, lim)
		s.Stats = s.Stats.Merge(out.stats)
		if err != nil {
			return err
		}
		if out.region == nil {
			s.StopReason = out.reason
			return nil
		}
		r := out.region
		if prev != nil && r.TopPair().Right.End() <= prev.Right.End() {
			s.StopReason = fmt.Sprintf("region %d: RIGHT primer at %d does not advance past region %d RIGHT primer at %d",
				num, r.TopPair().Right.End(), num-1, prev.Right.End())
			return nil
		}
		s.Regions = append(s.Regions, r)
		s.Stats.Regions++
		srch.obs.RegionCommitted(r, out.stats)
		if r.Terminal {
			s.Complete = true
			return nil
		}
	}
}

// Primers returns the primers of the scheme's top pairs, LEFT before RIGHT,
// optionally followed by each region's alternates.
func (s *Scheme) Primers(alternates bool) []*primer.Candidate {
	var ps []*primer.Candidate
	for _, r := range s.Regions {
		top := r.TopPair()
		ps = append(ps, top.Left, top.Right)
		if alternates {
			ps = append(ps, r.Alternates...)
		}
	}
	return ps
}
