// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package primer

import (
	"context"
	"fmt"
	"strings"

	"github.com/grailbio/primal/encoding/fasta"
)

// Alignment is one primer aligned against one reference.
//
// For a LEFT primer Start < End.  For a RIGHT primer the query was aligned to
// the reverse complement of the reference, and Start > End, mirroring
// Candidate coordinates.
type Alignment struct {
	RefID string
	// Found is false when the aligner could not place the primer at all; the
	// other fields are then zero.
	Found bool
	Start int
	End   int
	// Identity is the percent identity of the aligned columns, in [0, 100].
	Identity float64
	// Query and Ref are the aligned primer and reference strings, including
	// '-' gap characters.  Ref is oriented like the primer (5' to 3').
	Query string
	Ref   string
	// MM3Prime is set when the primer's 3'-terminal base does not match the
	// reference.  Such a primer is assumed not to extend.
	MM3Prime bool
}

// Score is the contribution of this alignment to a candidate's conservation
// score: zero if nothing aligned or the 3' base mismatches, else Identity.
func (a Alignment) Score() float64 {
	if !a.Found || a.MM3Prime {
		return 0
	}
	return a.Identity
}

// Matches renders the column-wise comparison of Query and Ref: '|' for a
// match, '*' for a mismatch, and ' ' for a gap.
func (a Alignment) Matches() string {
	var b strings.Builder
	for i := 0; i < len(a.Query) && i < len(a.Ref); i++ {
		q, r := a.Query[i], a.Ref[i]
		switch {
		case q == '-' || r == '-':
			b.WriteByte(' ')
		case q != r:
			b.WriteByte('*')
		default:
			b.WriteByte('|')
		}
	}
	return b.String()
}

// String formats the alignment for diagnostic output.
func (a Alignment) String() string {
	if !a.Found {
		return fmt.Sprintf("%s: none found", a.RefID)
	}
	return fmt.Sprintf("%s:%d-%d %.1f%% 5'-%s-3' %s 3'-%s-5'",
		a.RefID, a.Start, a.End, a.Identity, a.Query, a.Matches(), a.Ref)
}

// Query describes a primer to be placed on a reference.
type Query struct {
	Seq       string
	Direction Direction
	// Start is the primer's start in primary-reference coordinates.  Aligners
	// use it as a hint for where to look on the other references.
	Start int
}

// Aligner is the alignment oracle.  Implementations place a primer on one
// reference: LEFT primers against the forward strand, RIGHT primers against
// the reverse complement.
//
// A primer that cannot be placed is reported as Alignment{Found: false} with
// a nil error.  A non-nil error means the oracle itself failed.
type Aligner interface {
	Align(ctx context.Context, q Query, ref fasta.Record) (Alignment, error)
}
