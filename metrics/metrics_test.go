package metrics_test

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/metrics"
	"github.com/grailbio/primal/scheme"
	"github.com/grailbio/primal/scheme/schemetest"
	"github.com/grailbio/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver(t *testing.T) {
	obs := metrics.New()
	refs := []fasta.Record{{ID: "primary", Seq: schemetest.RandomGenome(11, 2000)}}
	oracles := scheme.Oracles{Design: &schemetest.Tiler{}, Align: schemetest.Aligner{}}
	s, err := scheme.Assemble(context.Background(), refs, oracles, scheme.DefaultOpts, obs)
	require.NoError(t, err)
	require.True(t, s.Complete)

	assert.Equal(t, float64(len(s.Regions)), promtest.ToFloat64(obs.RegionsCommitted))
	assert.Equal(t, float64(s.Stats.DesignCalls), promtest.ToFloat64(obs.DesignCalls.WithLabelValues("widen"))+
		promtest.ToFloat64(obs.DesignCalls.WithLabelValues("left"))+
		promtest.ToFloat64(obs.DesignCalls.WithLabelValues("right")))
	assert.Equal(t, 0.0, promtest.ToFloat64(obs.DesignErrors))
	assert.Equal(t, 0.0, promtest.ToFloat64(obs.Alternates))
	assert.Equal(t, 1.0, promtest.ToFloat64(obs.Complete))
	assert.Equal(t, 2000.0, promtest.ToFloat64(obs.CoveredBases))
	assert.Equal(t, 100.0, promtest.ToFloat64(obs.RegionScore))

	problems, err := promtest.GatherAndLint(obs.Registry())
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestIncomplete(t *testing.T) {
	obs := metrics.New()
	refs := []fasta.Record{{ID: "primary", Seq: schemetest.RandomGenome(11, 2000)}}
	opts := scheme.DefaultOpts
	opts.MaxSteps = 4
	s, err := scheme.Assemble(context.Background(), refs, scheme.Oracles{Design: schemetest.Empty, Align: schemetest.Aligner{}}, opts, obs)
	require.NoError(t, err)
	require.False(t, s.Complete)
	assert.Equal(t, 0.0, promtest.ToFloat64(obs.RegionsCommitted))
	assert.Equal(t, 4.0, promtest.ToFloat64(obs.DesignCalls.WithLabelValues("widen")))
	assert.Equal(t, 0.0, promtest.ToFloat64(obs.Complete))
}

// Windows too short to hold a product never reach the oracle and are not
// counted as design calls.
func TestShortTemplateNotCounted(t *testing.T) {
	obs := metrics.New()
	refs := []fasta.Record{{ID: "primary", Seq: schemetest.RandomGenome(11, 300)}}
	s, err := scheme.Assemble(context.Background(), refs, scheme.Oracles{Design: schemetest.Empty, Align: schemetest.Aligner{}}, scheme.DefaultOpts, obs)
	require.NoError(t, err)
	require.False(t, s.Complete)
	assert.Equal(t, 0, s.Stats.DesignCalls)
	assert.Equal(t, 0.0, promtest.ToFloat64(obs.DesignCalls.WithLabelValues("widen")))
	assert.Equal(t, 0.0, promtest.ToFloat64(obs.DesignErrors))
}

func TestWriteTextfile(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	obs := metrics.New()
	obs.RegionsCommitted.Add(3)
	path := filepath.Join(dir, "primal.prom")
	require.NoError(t, obs.WriteTextfile(path))
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "primal_regions_committed_total 3\n")
}
