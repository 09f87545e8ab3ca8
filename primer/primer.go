// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package primer defines the candidate model of a tiling scheme (primers,
// candidate primers, candidate pairs, regions, and their per-reference
// alignments) together with the conservation scorer that rates a candidate
// against a reference panel.
//
// Coordinates are 0-based and expressed in primary-reference coordinates.  A
// LEFT primer occupies [Start, End()); a RIGHT primer binds the reverse strand
// and occupies [End(), Start), so its End() is smaller than its Start.
package primer

import "fmt"

// Direction is the strand a primer extends along.
type Direction uint8

const (
	// Left primers bind the reverse strand and extend along the forward
	// strand, towards higher coordinates.
	Left Direction = iota
	// Right primers bind the forward strand and extend towards lower
	// coordinates.
	Right
)

// String implements fmt.Stringer.  The names match the BED/TSV output.
func (d Direction) String() string {
	switch d {
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// ParseDirection is the inverse of Direction.String.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "LEFT":
		return Left, nil
	case "RIGHT":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown primer direction %q", s)
}

// Primer is an oligo with its design-time properties.  Primers are values;
// they are never mutated after construction.
type Primer struct {
	Direction Direction
	Name      string
	// Seq is written 5' to 3'.
	Seq string
	// Tm is the melting temperature in Celsius.
	Tm float64
	// GC is the GC content as a percentage.
	GC float64
}

// Len returns the primer length in bases.
func (p Primer) Len() int { return len(p.Seq) }

// Name returns the canonical name of a primer: <prefix>_<region>_<LEFT|RIGHT>.
func Name(prefix string, regionNum int, dir Direction) string {
	return fmt.Sprintf("%s_%d_%s", prefix, regionNum, dir)
}
