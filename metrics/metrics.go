// Package metrics exports scheme assembly progress as Prometheus metrics.
package metrics

import (
	"github.com/grailbio/primal/primer"
	"github.com/grailbio/primal/scheme"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Observer is a scheme.Observer that records assembly events in a private
// registry.
type Observer struct {
	reg *prometheus.Registry

	RegionsCommitted prometheus.Counter
	DesignCalls      *prometheus.CounterVec
	DesignErrors     prometheus.Counter
	DesignDuration   prometheus.Histogram
	PairsReturned    prometheus.Histogram
	Alternates       prometheus.Counter
	RegionScore      prometheus.Gauge
	CoveredBases     prometheus.Gauge
	Complete         prometheus.Gauge
}

var _ scheme.Observer = (*Observer)(nil)

// New creates an Observer with all metrics registered.
func New() *Observer {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Observer{
		reg: reg,
		RegionsCommitted: f.NewCounter(prometheus.CounterOpts{
			Name: "primal_regions_committed_total",
			Help: "Total number of regions committed to the scheme",
		}),
		DesignCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "primal_design_calls_total",
			Help: "Design oracle calls by window step mode",
		}, []string{"mode"}),
		DesignErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "primal_design_errors_total",
			Help: "Design oracle calls that failed",
		}),
		DesignDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "primal_design_duration_seconds",
			Help:    "Duration of design oracle calls",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PairsReturned: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "primal_design_pairs_returned",
			Help:    "Number of primer pairs returned per design oracle call",
			Buckets: prometheus.LinearBuckets(0, 2, 11),
		}),
		Alternates: f.NewCounter(prometheus.CounterOpts{
			Name: "primal_alternates_total",
			Help: "Alternate primers added to committed regions",
		}),
		RegionScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "primal_last_region_score",
			Help: "Conservation score of the most recently committed top pair",
		}),
		CoveredBases: f.NewGauge(prometheus.GaugeOpts{
			Name: "primal_covered_bases",
			Help: "Rightmost primary-reference position covered so far",
		}),
		Complete: f.NewGauge(prometheus.GaugeOpts{
			Name: "primal_scheme_complete",
			Help: "1 if the scheme reached the end of the genome, else 0",
		}),
	}
}

// Registry returns the registry holding the observer's metrics.
func (o *Observer) Registry() *prometheus.Registry { return o.reg }

// WriteTextfile writes the current metric values to path in the Prometheus
// text format, for collection by node_exporter's textfile collector.
func (o *Observer) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, o.reg)
}

func (o *Observer) RegionStarted(scheme.Limits) {}

func (o *Observer) DesignCalled(ev scheme.DesignEvent) {
	if !ev.Called {
		return
	}
	o.DesignCalls.WithLabelValues(ev.Mode.String()).Inc()
	o.DesignDuration.Observe(ev.Duration.Seconds())
	if ev.Err != nil {
		o.DesignErrors.Inc()
		return
	}
	o.PairsReturned.Observe(float64(ev.Pairs))
}

func (o *Observer) RegionCommitted(r *primer.Region, _ scheme.Stats) {
	top := r.TopPair()
	o.RegionsCommitted.Inc()
	o.Alternates.Add(float64(len(r.Alternates)))
	o.RegionScore.Set(top.Score())
	o.CoveredBases.Set(float64(top.Right.Start))
}

func (o *Observer) Finished(s *scheme.Scheme) {
	if s.Complete {
		o.Complete.Set(1)
	} else {
		o.Complete.Set(0)
	}
}
