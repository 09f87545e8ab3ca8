package scheme

import (
	"fmt"
	"math"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/primal/design"
)

// Opts configures scheme assembly.
type Opts struct {
	// Prefix starts every primer name: <Prefix>_<region>_<LEFT|RIGHT>.
	Prefix string
	// AmpliconLength is the target amplicon length.
	AmpliconLength int
	// MinOverlap is the minimum number of bases shared by consecutive
	// amplicons.
	MinOverlap int
	// Variation is the fraction by which amplicon lengths may deviate from
	// AmpliconLength.  It must lie in (0, 1).
	Variation float64
	// MaxCandidates is the number of pairs requested from the design oracle
	// per call.
	MaxCandidates int
	// StepSize is how far the search window moves after a call that did not
	// return enough distinct primers.
	StepSize int
	// MaxAlternates caps the alternate primers added per primer of a top
	// pair.
	MaxAlternates int
	// PrimerMaxSize is the longest primer the design oracle may return.  It
	// also widens the window in which LEFT primers are searched.
	PrimerMaxSize int
	// Parallelism bounds the concurrent alignment calls.  0 means
	// runtime.NumCPU().
	Parallelism int
	// OracleTimeout bounds each design oracle call.  0 disables the timeout.
	OracleTimeout time.Duration
	// MaxSteps bounds the number of design oracle calls per region.
	MaxSteps int
	// FirstRightLimit is the right limit reported for region 1, which has no
	// previous amplicon to overlap.
	FirstRightLimit int
	// Params holds the chemistry constraints passed to the design oracle.
	// Params.PrimerMaxSize is overridden by PrimerMaxSize.
	Params design.Params
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Prefix:          "PRIMAL_SCHEME", // -prefix
	AmpliconLength:  400,             // -amplicon-length
	MinOverlap:      20,              // -min-overlap
	Variation:       0.1,             // -variation
	MaxCandidates:   10,              // -max-candidates
	StepSize:        11,              // -step-size
	MaxAlternates:   2,               // -max-alternates
	PrimerMaxSize:   30,              // -primer-max-size
	Parallelism:     0,               // -parallelism
	OracleTimeout:   2 * time.Minute, // -oracle-timeout
	MaxSteps:        10000,           // no flag
	FirstRightLimit: 0,               // no flag
	Params:          design.DefaultParams,
}

// Validate reports an errors.Invalid error for a configuration that cannot
// produce a scheme.  Assemble calls it before contacting any oracle.
func (o Opts) Validate() error {
	var msg string
	switch {
	case o.Prefix == "":
		msg = "empty primer name prefix"
	case o.AmpliconLength <= 0:
		msg = fmt.Sprintf("amplicon length must be positive, got %d", o.AmpliconLength)
	case o.MinOverlap < 0:
		msg = fmt.Sprintf("minimum overlap must not be negative, got %d", o.MinOverlap)
	case o.MinOverlap >= o.AmpliconLength:
		msg = fmt.Sprintf("minimum overlap %d does not fit in amplicon length %d", o.MinOverlap, o.AmpliconLength)
	case !(o.Variation > 0 && o.Variation < 1):
		msg = fmt.Sprintf("variation must lie in (0, 1), got %v", o.Variation)
	case o.MaxCandidates <= 0:
		msg = fmt.Sprintf("candidate count must be positive, got %d", o.MaxCandidates)
	case o.StepSize <= 0:
		msg = fmt.Sprintf("step size must be positive, got %d", o.StepSize)
	case o.MaxAlternates < 0:
		msg = fmt.Sprintf("alternate count must not be negative, got %d", o.MaxAlternates)
	case o.PrimerMaxSize <= 0:
		msg = fmt.Sprintf("primer max size must be positive, got %d", o.PrimerMaxSize)
	case o.MaxSteps <= 0:
		msg = fmt.Sprintf("step bound must be positive, got %d", o.MaxSteps)
	case o.OracleTimeout < 0:
		msg = fmt.Sprintf("negative oracle timeout %v", o.OracleTimeout)
	default:
		return nil
	}
	return errors.E(errors.Invalid, "scheme options: "+msg)
}

func round(x float64) int { return int(math.Round(x)) }

// chunkSize is the initial length of the template handed to the design
// oracle.
func (o Opts) chunkSize() int {
	return round((1 + o.Variation/2) * float64(o.AmpliconLength))
}

// variationSpan is the largest allowed deviation from AmpliconLength.
func (o Opts) variationSpan() int {
	return round(o.Variation * float64(o.AmpliconLength))
}

// searchSpan is the length of the window LEFT primers may start in.
func (o Opts) searchSpan() int {
	return o.variationSpan() + o.PrimerMaxSize
}

// productRange returns the allowed amplicon lengths.
func (o Opts) productRange() (lo, hi int) {
	amp := float64(o.AmpliconLength)
	return round(amp * (1 - o.Variation)), round(amp * (1 + o.Variation))
}

// params returns the design parameters for one oracle call.
func (o Opts) params() design.Params {
	p := o.Params
	p.PrimerMaxSize = o.PrimerMaxSize
	if p.PrimerOptSize > p.PrimerMaxSize {
		p.PrimerOptSize = p.PrimerMaxSize
	}
	if p.PrimerMinSize > p.PrimerOptSize {
		p.PrimerMinSize = p.PrimerOptSize
	}
	return p
}
