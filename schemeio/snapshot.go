// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package schemeio

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/primer"
	"github.com/grailbio/primal/scheme"
)

func init() {
	recordiozstd.Init()
}

const (
	snapshotVersion = "1"

	versionHeader  = "SnapshotVersion"
	runIDHeader    = "RunID"
	refNamesHeader = "RefNames"
)

// A snapshot is a recordio file with one JSON-encoded regionRecord per
// region.  Candidates shared between pairs are stored once and referenced by
// index.  The trailer holds a JSON-encoded trailerRecord.

type alignmentRecord struct {
	RefID    string  `json:"ref_id"`
	Found    bool    `json:"found"`
	Start    int     `json:"start,omitempty"`
	End      int     `json:"end,omitempty"`
	Identity float64 `json:"identity,omitempty"`
	Query    string  `json:"query,omitempty"`
	Ref      string  `json:"ref,omitempty"`
	MM3Prime bool    `json:"mm3prime,omitempty"`
}

type candidateRecord struct {
	Name       string            `json:"name"`
	Direction  string            `json:"direction"`
	Seq        string            `json:"seq"`
	Start      int               `json:"start"`
	Tm         float64           `json:"tm"`
	GC         float64           `json:"gc"`
	Alignments []alignmentRecord `json:"alignments"`
}

type regionRecord struct {
	Num        int               `json:"num"`
	Terminal   bool              `json:"terminal,omitempty"`
	Candidates []candidateRecord `json:"candidates"`
	// Pairs holds [left, right] indexes into Candidates, best first.
	Pairs      [][2]int `json:"pairs"`
	Alternates []int    `json:"alternates,omitempty"`
}

type trailerRecord struct {
	Regions    int          `json:"regions"`
	Complete   bool         `json:"complete"`
	StopReason string       `json:"stop_reason,omitempty"`
	Stats      scheme.Stats `json:"stats"`
}

// SnapshotInfo describes a snapshot.
type SnapshotInfo struct {
	// RunID identifies the assembly run that wrote the snapshot.
	RunID string
	// RefNames are the IDs of the reference panel, primary first.
	RefNames []string
}

func newRegionRecord(r *primer.Region) *regionRecord {
	rec := &regionRecord{Num: r.Num, Terminal: r.Terminal}
	index := map[*primer.Candidate]int{}
	add := func(c *primer.Candidate) int {
		if i, ok := index[c]; ok {
			return i
		}
		cr := candidateRecord{
			Name:      c.Name,
			Direction: c.Direction.String(),
			Seq:       c.Seq,
			Start:     c.Start,
			Tm:        c.Tm,
			GC:        c.GC,
		}
		for _, a := range c.Alignments() {
			cr.Alignments = append(cr.Alignments, alignmentRecord(a))
		}
		index[c] = len(rec.Candidates)
		rec.Candidates = append(rec.Candidates, cr)
		return index[c]
	}
	for _, p := range r.Pairs {
		rec.Pairs = append(rec.Pairs, [2]int{add(p.Left), add(p.Right)})
	}
	for _, c := range r.Alternates {
		rec.Alternates = append(rec.Alternates, add(c))
	}
	return rec
}

func (rec *regionRecord) region() (*primer.Region, error) {
	cands := make([]*primer.Candidate, len(rec.Candidates))
	for i, cr := range rec.Candidates {
		dir, err := primer.ParseDirection(cr.Direction)
		if err != nil {
			return nil, err
		}
		alns := make([]primer.Alignment, len(cr.Alignments))
		for j, a := range cr.Alignments {
			alns[j] = primer.Alignment(a)
		}
		p := primer.Primer{Direction: dir, Name: cr.Name, Seq: cr.Seq, Tm: cr.Tm, GC: cr.GC}
		cands[i] = primer.Restore(p, cr.Start, alns)
	}
	get := func(i int) (*primer.Candidate, error) {
		if i < 0 || i >= len(cands) {
			return nil, fmt.Errorf("region %d: candidate index %d out of range", rec.Num, i)
		}
		return cands[i], nil
	}
	pairs := make([]*primer.Pair, len(rec.Pairs))
	for i, lr := range rec.Pairs {
		left, err := get(lr[0])
		if err != nil {
			return nil, err
		}
		right, err := get(lr[1])
		if err != nil {
			return nil, err
		}
		pairs[i] = &primer.Pair{Left: left, Right: right}
	}
	var alts []*primer.Candidate
	for _, i := range rec.Alternates {
		c, err := get(i)
		if err != nil {
			return nil, err
		}
		alts = append(alts, c)
	}
	return primer.NewRegion(rec.Num, pairs, alts, rec.Terminal)
}

func marshalJSON(scratch []byte, v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalRegion(in []byte) (interface{}, error) {
	rec := &regionRecord{}
	if err := json.Unmarshal(in, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// NewRunID returns a fresh identifier for an assembly run.
func NewRunID() string { return uuid.New().String() }

// WriteSnapshot writes s to out as a zstd-compressed recordio file.  If runID
// is empty a new one is generated.  The snapshot holds every candidate pair
// considered for each region, with its alignments, so that the scheme can be
// re-rendered or inspected without re-running the oracles.
func WriteSnapshot(out io.Writer, s *scheme.Scheme, runID string) error {
	if runID == "" {
		runID = NewRunID()
	}
	refNames := make([]string, len(s.Refs))
	for i, ref := range s.Refs {
		refNames[i] = ref.ID
	}
	w := recordio.NewWriter(out, recordio.WriterOpts{
		Marshal:      marshalJSON,
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(versionHeader, snapshotVersion)
	w.AddHeader(runIDHeader, runID)
	w.AddHeader(refNamesHeader, strings.Join(refNames, "\000"))
	w.AddHeader(recordio.KeyTrailer, true)
	for _, r := range s.Regions {
		w.Append(newRegionRecord(r))
	}
	trailer, err := json.Marshal(trailerRecord{
		Regions:    len(s.Regions),
		Complete:   s.Complete,
		StopReason: s.StopReason,
		Stats:      s.Stats,
	})
	if err != nil {
		return err
	}
	w.SetTrailer(trailer)
	return w.Finish()
}

// ReadSnapshot reads a snapshot written by WriteSnapshot.  The returned
// scheme's Refs carry IDs only; sequences are not stored in snapshots.
func ReadSnapshot(rs io.ReadSeeker) (*scheme.Scheme, SnapshotInfo, error) {
	var info SnapshotInfo
	scanner := recordio.NewScanner(rs, recordio.ScannerOpts{Unmarshal: unmarshalRegion})
	defer scanner.Finish() // nolint: errcheck
	version := ""
	for _, kv := range scanner.Header() {
		switch kv.Key {
		case versionHeader:
			version, _ = kv.Value.(string)
		case runIDHeader:
			info.RunID, _ = kv.Value.(string)
		case refNamesHeader:
			if names, _ := kv.Value.(string); names != "" {
				info.RefNames = strings.Split(names, "\000")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, info, errors.E(errors.Invalid, "snapshot", err)
	}
	if version != snapshotVersion {
		return nil, info, errors.E(errors.Invalid, fmt.Sprintf("snapshot: unsupported version %q", version))
	}
	var trailer trailerRecord
	if err := json.Unmarshal(scanner.Trailer(), &trailer); err != nil {
		return nil, info, errors.E(errors.Invalid, "snapshot trailer", err)
	}
	s := &scheme.Scheme{
		Complete:   trailer.Complete,
		StopReason: trailer.StopReason,
		Stats:      trailer.Stats,
	}
	for _, name := range info.RefNames {
		s.Refs = append(s.Refs, fasta.Record{ID: name})
	}
	for scanner.Scan() {
		r, err := scanner.Get().(*regionRecord).region()
		if err != nil {
			return nil, info, errors.E(errors.Invalid, "snapshot", err)
		}
		s.Regions = append(s.Regions, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, info, errors.E(errors.Invalid, "snapshot", err)
	}
	if len(s.Regions) != trailer.Regions {
		return nil, info, errors.E(errors.Invalid,
			fmt.Sprintf("snapshot: read %d regions, trailer records %d", len(s.Regions), trailer.Regions))
	}
	return s, info, nil
}
