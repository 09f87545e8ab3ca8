// Package design defines the primer design oracle: given a template sequence
// and a set of constraints, propose candidate primer pairs.  The Primer3
// type implements the oracle on top of the primer3_core binary.
package design

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
)

// Params holds the primer chemistry constraints that do not change between
// oracle calls.  The names follow primer3's PRIMER_* tags.
type Params struct {
	PrimerOptSize int
	PrimerMinSize int
	PrimerMaxSize int

	PrimerOptTm float64
	PrimerMinTm float64
	PrimerMaxTm float64

	PrimerMinGC float64
	PrimerMaxGC float64

	// MaxPolyX is the longest allowed mononucleotide run.
	MaxPolyX int
	// MaxEndStability is the maximum stability (delta G, kcal/mol) of the
	// last five 3' bases.
	MaxEndStability float64

	// Concentrations: monovalent and divalent cations and dNTPs in mM,
	// annealing oligo in nM.
	SaltMonovalent float64
	SaltDivalent   float64
	DNTPConc       float64
	DNAConc        float64
}

// DefaultParams are the constraints primal designs multiplex primers with.
var DefaultParams = Params{
	PrimerOptSize:   22,
	PrimerMinSize:   19,
	PrimerMaxSize:   30,
	PrimerOptTm:     61.5,
	PrimerMinTm:     60,
	PrimerMaxTm:     63,
	PrimerMinGC:     30,
	PrimerMaxGC:     55,
	MaxPolyX:        5,
	MaxEndStability: 9,
	SaltMonovalent:  50,
	SaltDivalent:    1.5,
	DNTPConc:        0.6,
	DNAConc:         50,
}

// Window is a half-open range [Start, End) of template offsets.
type Window struct {
	Start, End int
}

// Len returns the number of bases in the window.
func (w Window) Len() int { return w.End - w.Start }

// Request is a single oracle call.  Requests are values; a new one is built
// for every call by NewRequest, and oracles must not retain them.
type Request struct {
	Params Params
	// Template is the sequence primers are designed on.  Offsets in the
	// request and in the returned pairs are relative to it.
	Template string
	// LeftWindow restricts where LEFT primers may start.  RIGHT primers may
	// lie anywhere in the template.
	LeftWindow Window
	// MinProduct and MaxProduct bound the amplicon length.
	MinProduct, MaxProduct int
	// NumReturn is the maximum number of pairs to return.
	NumReturn int
}

// NewRequest builds a request on the given template.
func NewRequest(params Params, template string, left Window, minProduct, maxProduct, numReturn int) Request {
	return Request{
		Params:     params,
		Template:   template,
		LeftWindow: left,
		MinProduct: minProduct,
		MaxProduct: maxProduct,
		NumReturn:  numReturn,
	}
}

// Validate checks that the request is internally consistent.
func (r Request) Validate() error {
	var msg string
	switch {
	case len(r.Template) == 0:
		msg = "empty template"
	case r.LeftWindow.Start < 0 || r.LeftWindow.End > len(r.Template) || r.LeftWindow.Len() <= 0:
		msg = fmt.Sprintf("left window %v outside template of length %d", r.LeftWindow, len(r.Template))
	case r.MinProduct <= 0 || r.MaxProduct < r.MinProduct:
		msg = fmt.Sprintf("bad product range [%d, %d]", r.MinProduct, r.MaxProduct)
	case r.NumReturn <= 0:
		msg = fmt.Sprintf("NumReturn must be positive, got %d", r.NumReturn)
	default:
		return nil
	}
	return errors.E(errors.Invalid, "design request: "+msg)
}

// Oligo is one primer of a designed pair.
type Oligo struct {
	// Start is the template offset of the primer's 5' end.  For a RIGHT
	// primer it is exclusive: one past the 5'-most base on the forward
	// strand.
	Start int
	// Seq is written 5' to 3'.
	Seq string
	Tm  float64
	GC  float64
}

// Pair is a designed LEFT and RIGHT primer.
type Pair struct {
	Left, Right Oligo
}

// Oracle proposes primer pairs for a request.  Returning no pairs is not an
// error; an error means the oracle itself failed.
type Oracle interface {
	Design(ctx context.Context, req Request) ([]Pair, error)
}

// Thermo computes melting temperatures.
type Thermo interface {
	MeltingTemp(ctx context.Context, seq string) (float64, error)
}
