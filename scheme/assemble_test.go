package scheme_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/primal/design"
	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/primer"
	"github.com/grailbio/primal/scheme"
	"github.com/grailbio/primal/scheme/schemetest"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genome = schemetest.RandomGenome(11, 2000)

func refs(seqs ...string) []fasta.Record {
	var r []fasta.Record
	for i, s := range seqs {
		r = append(r, fasta.Record{ID: fmt.Sprintf("genome%d", i), Seq: s})
	}
	return r
}

func oracles(d design.Oracle) scheme.Oracles {
	return scheme.Oracles{Design: d, Align: schemetest.Aligner{}}
}

// counting wraps an oracle and counts its calls.
type counting struct {
	design.Oracle
	n int32
}

func (c *counting) Design(ctx context.Context, req design.Request) ([]design.Pair, error) {
	atomic.AddInt32(&c.n, 1)
	return c.Oracle.Design(ctx, req)
}

type events struct {
	started, committed, finished int
	designs                      []scheme.DesignEvent
}

func (e *events) RegionStarted(scheme.Limits)                  { e.started++ }
func (e *events) DesignCalled(ev scheme.DesignEvent)           { e.designs = append(e.designs, ev) }
func (e *events) RegionCommitted(*primer.Region, scheme.Stats) { e.committed++ }
func (e *events) Finished(*scheme.Scheme)                      { e.finished++ }

func checkRegions(t *testing.T, s *scheme.Scheme, opts scheme.Opts) {
	t.Helper()
	lo := int(float64(opts.AmpliconLength) * (1 - opts.Variation))
	hi := int(float64(opts.AmpliconLength) * (1 + opts.Variation))
	for i, r := range s.Regions {
		expect.EQ(t, r.Num, i+1)
		if r.Num%2 == 0 {
			expect.EQ(t, r.Pool(), "2")
		} else {
			expect.EQ(t, r.Pool(), "1")
		}
		top := r.TopPair()
		expect.True(t, top.ProductLength() > 0)
		expect.True(t, top.ProductLength() >= lo && top.ProductLength() <= hi, "region %d: product %d", r.Num, top.ProductLength())
		for j := 1; j < len(r.Pairs); j++ {
			a, b := r.Pairs[j-1], r.Pairs[j]
			expect.True(t, a.Score() > b.Score() || (a.Score() == b.Score() && a.Right.End() >= b.Right.End()),
				"region %d: pairs %d and %d out of order", r.Num, j-1, j)
		}
		if i >= 1 {
			prev := s.Regions[i-1].TopPair()
			expect.True(t, top.Left.Start <= prev.Right.End()-opts.MinOverlap, "region %d does not overlap region %d", r.Num, r.Num-1)
		}
		if i >= 2 {
			same := s.Regions[i-2].TopPair()
			expect.True(t, top.Left.Start > same.Right.End(), "region %d collides with region %d", r.Num, r.Num-2)
		}
	}
}

func TestTiling(t *testing.T) {
	s, err := scheme.Assemble(context.Background(), refs(genome), oracles(&schemetest.Tiler{}), scheme.DefaultOpts, nil)
	require.NoError(t, err)
	assert.True(t, s.Complete, s.StopReason)
	assert.Empty(t, s.StopReason)
	require.Len(t, s.Regions, 6)
	checkRegions(t, s, scheme.DefaultOpts)

	var pools []string
	for _, r := range s.Regions {
		pools = append(pools, r.Pool())
	}
	assert.Equal(t, []string{"1", "2", "1", "2", "1", "2"}, pools)

	last := s.Regions[5]
	assert.True(t, last.Terminal)
	assert.Equal(t, len(genome), last.TopPair().Right.Start)
	for _, r := range s.Regions[:5] {
		assert.False(t, r.Terminal)
	}
	assert.Equal(t, "PRIMAL_SCHEME_3_LEFT", s.Regions[2].TopPair().Left.Name)
	assert.Equal(t, 6, s.Stats.Regions)
	assert.Equal(t, 6, s.Stats.DesignCalls)
	assert.Equal(t, 0, s.Stats.Steps())
	assert.Len(t, s.Primers(false), 12)
}

// Consecutive amplicons overlap for any genome length, whichever end of the
// LEFT window the oracle favours.
func TestOverlapAcrossLengths(t *testing.T) {
	long := schemetest.RandomGenome(13, 4000)
	for _, far := range []bool{false, true} {
		for n := 800; n <= len(long); n += 97 {
			t.Run(fmt.Sprintf("far=%v/len=%d", far, n), func(t *testing.T) {
				s, err := scheme.Assemble(context.Background(), refs(long[:n]), oracles(&schemetest.Tiler{Far: far}), scheme.DefaultOpts, nil)
				require.NoError(t, err)
				require.NotEmpty(t, s.Regions)
				checkRegions(t, s, scheme.DefaultOpts)
				if s.Complete {
					assert.True(t, s.Regions[len(s.Regions)-1].Terminal)
				}
			})
		}
	}
}

func TestSingleRegion(t *testing.T) {
	tiler := &schemetest.Tiler{}
	s, err := scheme.Assemble(context.Background(), refs(genome[:410]), oracles(tiler), scheme.DefaultOpts, nil)
	require.NoError(t, err)
	require.Len(t, s.Regions, 1)
	assert.True(t, s.Regions[0].Terminal)
	assert.True(t, s.Complete)
	assert.Len(t, tiler.Requests(), 1)
	checkRegions(t, s, scheme.DefaultOpts)
}

func TestNoPrimers(t *testing.T) {
	obs := &events{}
	s, err := scheme.Assemble(context.Background(), refs(genome), oracles(schemetest.Empty), scheme.DefaultOpts, obs)
	require.NoError(t, err)
	assert.Empty(t, s.Regions)
	assert.False(t, s.Complete)
	assert.Contains(t, s.StopReason, "no suitable primers")
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, 0, obs.committed)
	assert.Equal(t, 1, obs.finished)
	// Region 1 widens the window until it passes the end of the genome.
	assert.Equal(t, (len(genome)-420)/11+1, len(obs.designs))
}

func TestThreePrimeMismatch(t *testing.T) {
	// The second genome differs at the 3' base of the LEFT primer that would
	// otherwise be chosen for region 1.
	s, err := scheme.Assemble(context.Background(), refs(genome, schemetest.Substitute(genome, 19)),
		oracles(&schemetest.Tiler{}), scheme.DefaultOpts, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.Regions)
	r := s.Regions[0]
	assert.Equal(t, 1, r.TopPair().Left.Start)

	var mismatched *primer.Pair
	for _, p := range r.Pairs {
		if p.Left.Start == 0 {
			mismatched = p
		}
	}
	require.NotNil(t, mismatched)
	alns := mismatched.Left.Alignments()
	require.Len(t, alns, 2)
	assert.False(t, alns[0].MM3Prime)
	assert.True(t, alns[1].MM3Prime)
	assert.Equal(t, 50.0, mismatched.Left.Score())
	assert.Equal(t, 97.5, r.TopPair().Left.Score())
	assert.Equal(t, r.Pairs[len(r.Pairs)-1], mismatched)
}

// summary renders the parts of a scheme that must be reproducible.
func summary(s *scheme.Scheme) string {
	var b strings.Builder
	for _, r := range s.Regions {
		top := r.TopPair()
		fmt.Fprintf(&b, "%d %s %s:%d %s:%d %.6f", r.Num, r.Pool(), top.Left.Seq, top.Left.Start, top.Right.Seq, top.Right.Start, top.Score())
		for _, a := range r.Alternates {
			fmt.Fprintf(&b, " %s=%s", a.Name, a.Seq)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func TestDeterminism(t *testing.T) {
	panel := refs(genome,
		schemetest.Substitute(genome, 15), schemetest.Substitute(genome, 15),
		schemetest.Substitute(genome, 1000), schemetest.Substitute(genome, 1000),
		schemetest.Substitute(genome, 1630))
	opts := scheme.DefaultOpts
	opts.Parallelism = 8
	var first string
	for i := 0; i < 3; i++ {
		s, err := scheme.Assemble(context.Background(), panel, oracles(&schemetest.Tiler{}), opts, nil)
		require.NoError(t, err)
		got := summary(s)
		if i == 0 {
			first = got
			assert.Contains(t, got, "PRIMAL_SCHEME_1_LEFT_alt1=")
			continue
		}
		assert.Equal(t, first, got)
	}
}

func TestInfeasibleOverlap(t *testing.T) {
	opts := scheme.DefaultOpts
	opts.MinOverlap = 350
	s, err := scheme.Assemble(context.Background(), refs(genome), oracles(&schemetest.Tiler{}), opts, nil)
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
	require.NotNil(t, s)
	assert.Len(t, s.Regions, 2)
	assert.False(t, s.Complete)
}

func TestInvalidInput(t *testing.T) {
	c := &counting{Oracle: &schemetest.Tiler{}}
	opts := scheme.DefaultOpts
	opts.StepSize = 0
	_, err := scheme.Assemble(context.Background(), refs(genome), oracles(c), opts, nil)
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
	assert.EqualValues(t, 0, c.n)

	_, err = scheme.Assemble(context.Background(), nil, oracles(c), scheme.DefaultOpts, nil)
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
	_, err = scheme.Assemble(context.Background(), refs(genome), scheme.Oracles{Design: c}, scheme.DefaultOpts, nil)
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
}

func TestOracleFailure(t *testing.T) {
	tiler := &schemetest.Tiler{}
	calls := 0
	flaky := schemetest.OracleFunc(func(ctx context.Context, req design.Request) ([]design.Pair, error) {
		calls++
		if calls > 2 {
			return nil, fmt.Errorf("primer3 exited with status 255")
		}
		return tiler.Design(ctx, req)
	})
	obs := &events{}
	s, err := scheme.Assemble(context.Background(), refs(genome), oracles(flaky), scheme.DefaultOpts, obs)
	assert.True(t, errors.Is(errors.Unavailable, err), "%v", err)
	require.NotNil(t, s)
	assert.Len(t, s.Regions, 2)
	assert.False(t, s.Complete)
	assert.Contains(t, s.StopReason, "status 255")
	assert.Equal(t, 1, obs.finished)
}

func TestOracleTimeout(t *testing.T) {
	opts := scheme.DefaultOpts
	opts.OracleTimeout = 10 * time.Millisecond
	s, err := scheme.Assemble(context.Background(), refs(genome), oracles(schemetest.Blocking), opts, nil)
	assert.True(t, errors.Is(errors.Timeout, err), "%v", err)
	assert.Empty(t, s.Regions)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := scheme.Assemble(ctx, refs(genome), oracles(&schemetest.Tiler{}), scheme.DefaultOpts, nil)
	assert.Equal(t, context.Canceled, err)
	assert.Empty(t, s.Regions)
}

func TestStall(t *testing.T) {
	tiler := &schemetest.Tiler{}
	// Region 1 is designed normally; later templates only yield short
	// amplicons near their start, which cannot advance the scheme.
	short := schemetest.OracleFunc(func(ctx context.Context, req design.Request) ([]design.Pair, error) {
		if strings.HasPrefix(genome, req.Template) {
			return tiler.Design(ctx, req)
		}
		var pairs []design.Pair
		for k := 0; k < 5; k++ {
			left, right := req.Template[k:k+20], req.Template[90-k:110-k]
			pairs = append(pairs, design.Pair{
				Left:  design.Oligo{Start: k, Seq: left},
				Right: design.Oligo{Start: 110 - k, Seq: right},
			})
		}
		return pairs, nil
	})
	s, err := scheme.Assemble(context.Background(), refs(genome), oracles(short), scheme.DefaultOpts, nil)
	require.NoError(t, err)
	assert.Len(t, s.Regions, 1)
	assert.False(t, s.Complete)
	// The positions reported are the ones compared.
	assert.Regexp(t, `^region 2: RIGHT primer at 39[5-9] does not advance past region 1 RIGHT primer at 400$`, s.StopReason)
}

func TestObservers(t *testing.T) {
	a, b := &events{}, &events{}
	obs := scheme.MultiObserver{a, scheme.LogObserver{}, b, scheme.NopObserver{}}
	s, err := scheme.Assemble(context.Background(), refs(genome), oracles(&schemetest.Tiler{}), scheme.DefaultOpts, obs)
	require.NoError(t, err)
	for _, e := range []*events{a, b} {
		assert.Equal(t, len(s.Regions), e.started)
		assert.Equal(t, len(s.Regions), e.committed)
		assert.Equal(t, 1, e.finished)
		assert.Len(t, e.designs, s.Stats.DesignCalls)
	}
}
