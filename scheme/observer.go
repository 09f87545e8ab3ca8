package scheme

import (
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/primal/primer"
)

// StepMode is the way the search window moves after a design oracle call
// that did not return enough distinct primers.
type StepMode uint8

const (
	// Widen grows the window to the right.  Region 1 uses it throughout.
	Widen StepMode = iota
	// ShiftLeft moves the window towards the previous region.
	ShiftLeft
	// ShiftRight moves the window away from the previous region, opening a
	// coverage gap.
	ShiftRight
)

func (m StepMode) String() string {
	switch m {
	case Widen:
		return "widen"
	case ShiftLeft:
		return "left"
	case ShiftRight:
		return "right"
	}
	return "unknown"
}

// DesignEvent describes one design oracle call.
type DesignEvent struct {
	Region int
	Mode   StepMode
	// ChunkStart and ChunkEnd bound the template in primary-reference
	// coordinates.
	ChunkStart, ChunkEnd int
	// Pairs is the number of pairs returned; Diverse reports whether they
	// passed the diversity check.
	Pairs    int
	Diverse  bool
	// Called is false when the template was too short to hold a product and
	// the oracle was not asked; Duration is then zero.
	Called   bool
	Duration time.Duration
	Err      error
}

// Observer receives assembly events.  Calls are made from the goroutine
// running Assemble, in order.
type Observer interface {
	RegionStarted(lim Limits)
	DesignCalled(ev DesignEvent)
	RegionCommitted(r *primer.Region, stats Stats)
	Finished(s *Scheme)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) RegionStarted(Limits)                  {}
func (NopObserver) DesignCalled(DesignEvent)              {}
func (NopObserver) RegionCommitted(*primer.Region, Stats) {}
func (NopObserver) Finished(*Scheme)                      {}

// LogObserver reports progress through github.com/grailbio/base/log.
type LogObserver struct{}

func (LogObserver) RegionStarted(lim Limits) {
	log.Debug.Printf("%v", lim)
}

func (LogObserver) DesignCalled(ev DesignEvent) {
	if ev.Err != nil {
		log.Error.Printf("region %d: design oracle failed on [%d, %d) after %v: %v",
			ev.Region, ev.ChunkStart, ev.ChunkEnd, ev.Duration, ev.Err)
		return
	}
	if !ev.Called {
		log.Debug.Printf("region %d: %s step, chunk [%d, %d) too short for a product",
			ev.Region, ev.Mode, ev.ChunkStart, ev.ChunkEnd)
		return
	}
	log.Debug.Printf("region %d: %s step, chunk [%d, %d), %d pairs, diverse %v (%v)",
		ev.Region, ev.Mode, ev.ChunkStart, ev.ChunkEnd, ev.Pairs, ev.Diverse, ev.Duration)
}

func (LogObserver) RegionCommitted(r *primer.Region, stats Stats) {
	top := r.TopPair()
	log.Printf("region %d (pool %s): %s %d-%d, %s %d-%d, product %d, score %.2f, %d alternates, %d oracle calls",
		r.Num, r.Pool(), top.Left.Name, top.Left.Start, top.Left.End(),
		top.Right.Name, top.Right.End(), top.Right.Start,
		top.ProductLength(), top.Score(), len(r.Alternates), stats.DesignCalls)
}

func (LogObserver) Finished(s *Scheme) {
	if s.Complete {
		log.Printf("scheme complete: %d regions, %d design calls, %d steps", len(s.Regions), s.Stats.DesignCalls, s.Stats.Steps())
		return
	}
	log.Printf("scheme incomplete after %d regions: %s", len(s.Regions), s.StopReason)
}

// MultiObserver forwards every event to each of its elements in turn.
type MultiObserver []Observer

func (m MultiObserver) RegionStarted(lim Limits) {
	for _, o := range m {
		o.RegionStarted(lim)
	}
}

func (m MultiObserver) DesignCalled(ev DesignEvent) {
	for _, o := range m {
		o.DesignCalled(ev)
	}
}

func (m MultiObserver) RegionCommitted(r *primer.Region, stats Stats) {
	for _, o := range m {
		o.RegionCommitted(r, stats)
	}
}

func (m MultiObserver) Finished(s *Scheme) {
	for _, o := range m {
		o.Finished(s)
	}
}
