// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package primer

import (
	"sort"

	"github.com/grailbio/base/errors"
)

// Pool names.  Adjacent regions alternate pools so that overlapping amplicons
// never share a reaction.
const (
	Pool1 = "1"
	Pool2 = "2"
)

// PoolOf returns the pool of region num: "2" for even regions, "1" otherwise.
func PoolOf(num int) string {
	if num%2 == 0 {
		return Pool2
	}
	return Pool1
}

// Region is one committed amplicon of a scheme and all the candidate pairs
// that were considered for it.  Regions are immutable.
type Region struct {
	// Num is the 1-based ordinal of the region.
	Num int
	// Pairs is sorted best-first; see SortPairs.
	Pairs []*Pair
	// Alternates are extra primers covering sites where the panel diverges
	// from the top pair.
	Alternates []*Candidate
	// Terminal is set on the region anchored to the end of the genome.
	Terminal bool
}

// NewRegion creates a region from scored candidate pairs.  The pairs are
// sorted in place.
func NewRegion(num int, pairs []*Pair, alternates []*Candidate, terminal bool) (*Region, error) {
	if num < 1 {
		return nil, errors.E(errors.Invalid, "region number must be positive")
	}
	if len(pairs) == 0 {
		return nil, errors.E(errors.Invalid, "region has no candidate pairs")
	}
	for _, p := range pairs {
		if !p.Left.Scored() || !p.Right.Scored() {
			return nil, errors.E(errors.Invalid, "region built from unscored candidates")
		}
	}
	SortPairs(pairs)
	return &Region{Num: num, Pairs: pairs, Alternates: alternates, Terminal: terminal}, nil
}

// Pool returns the pool the region's primers belong to.
func (r *Region) Pool() string { return PoolOf(r.Num) }

// TopPair returns the best candidate pair.
func (r *Region) TopPair() *Pair { return r.Pairs[0] }

// SortPairs orders pairs by descending mean score, breaking ties by the
// rightmost-ending RIGHT primer.  Remaining ties keep their input order.
func SortPairs(pairs []*Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		si, sj := pairs[i].Score(), pairs[j].Score()
		if si != sj {
			return si > sj
		}
		return pairs[i].Right.End() > pairs[j].Right.End()
	})
}
