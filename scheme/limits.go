package scheme

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/primal/primer"
)

// Limits are the coordinate constraints of one region, derived from the
// regions committed before it.
type Limits struct {
	// Num is the region number.
	Num int
	// Left is the first position the region's LEFT primer may occupy.  It
	// keeps the new amplicon clear of the previous amplicon in the same
	// pool.
	Left int
	// Right sizes the search window so that the new amplicon overlaps the
	// previous one by at least Opts.MinOverlap bases.
	Right int
	// Terminal is set for the region anchored to the end of the genome.
	Terminal bool
}

func (l Limits) String() string {
	return fmt.Sprintf("region %d: left limit %d, right limit %d, terminal %v", l.Num, l.Left, l.Right, l.Terminal)
}

// regionLimits computes the limits of region num.  prev is the top pair of
// region num-1 and prevSame that of region num-2, the last region in the same
// pool; either may be nil.
func regionLimits(num int, prev, prevSame *primer.Pair, genomeLen int, opts Opts) (Limits, error) {
	lim := Limits{Num: num}
	if prev == nil {
		lim.Right = opts.FirstRightLimit
		lim.Terminal = genomeLen < opts.chunkSize()
		return lim, nil
	}
	lim.Right = prev.Right.End() - opts.MinOverlap - 1
	lim.Terminal = genomeLen-prev.Right.End() < opts.AmpliconLength
	switch {
	case prevSame == nil:
		lim.Left = prev.Left.End() + 1
	case prev.Left.Start > prevSame.Right.Start:
		// A gap was opened between the two previous regions, so prevSame no
		// longer constrains this one.
		lim.Left = prev.Left.End() + 1
	default:
		lim.Left = prevSame.Right.End() + 1
	}
	if prevSame != nil && lim.Right <= lim.Left {
		return lim, errors.E(errors.Invalid,
			fmt.Sprintf("region %d: right limit %d <= left limit %d; amplicon length %d is too short for an overlap of %d",
				num, lim.Right, lim.Left, opts.AmpliconLength, opts.MinOverlap))
	}
	return lim, nil
}
