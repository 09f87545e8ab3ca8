// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package primer

import "sync"

// Candidate is a primer placed at a genomic position, together with its
// conservation across the reference panel.  The alignments and score are
// computed lazily by a Scorer and then fixed; a Candidate must not be copied
// after creation.
type Candidate struct {
	Primer
	// Start is the 5' position of the primer.  For RIGHT primers this is one
	// past the 5'-most base on the forward strand.
	Start int

	once       sync.Once
	scored     bool
	alignments []Alignment
	score      float64
}

// NewCandidate creates an unscored candidate.
func NewCandidate(p Primer, start int) *Candidate {
	return &Candidate{Primer: p, Start: start}
}

// Restore creates a candidate whose alignments are already known, e.g. one
// read back from a snapshot.
func Restore(p Primer, start int, alignments []Alignment) *Candidate {
	c := NewCandidate(p, start)
	c.setAlignments(alignments)
	return c
}

// End returns the 3' boundary of the primer: Start+len for LEFT primers,
// Start-len for RIGHT ones.
func (c *Candidate) End() int {
	if c.Direction == Left {
		return c.Start + c.Len()
	}
	return c.Start - c.Len()
}

// Scored reports whether the candidate's alignments have been computed.
func (c *Candidate) Scored() bool { return c.scored }

// Alignments returns the per-reference alignments, in panel order.  It
// returns nil for an unscored candidate.  The caller must not modify the
// result.
func (c *Candidate) Alignments() []Alignment { return c.alignments }

// Score returns the mean per-reference Alignment.Score, in [0, 100].  It
// returns 0 for an unscored candidate.
func (c *Candidate) Score() float64 { return c.score }

// setAlignments fixes the alignments and derives the score.  Calls after the
// first are ignored.
func (c *Candidate) setAlignments(alignments []Alignment) {
	c.once.Do(func() {
		c.alignments = alignments
		total := 0.0
		for _, a := range alignments {
			total += a.Score()
		}
		if len(alignments) > 0 {
			c.score = total / float64(len(alignments))
		}
		c.scored = true
	})
}

// Pair is a LEFT and a RIGHT candidate that together bound an amplicon.
type Pair struct {
	Left, Right *Candidate
}

// ProductLength is the amplicon length implied by the pair.
func (p *Pair) ProductLength() int {
	return p.Right.Start - p.Left.Start + 1
}

// Score is the mean of the two primers' conservation scores.
func (p *Pair) Score() float64 {
	return (p.Left.Score() + p.Right.Score()) / 2
}
