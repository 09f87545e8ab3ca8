package schemeio_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/primer"
	"github.com/grailbio/primal/scheme"
	"github.com/grailbio/primal/scheme/schemetest"
	"github.com/grailbio/primal/schemeio"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genome = schemetest.RandomGenome(11, 2000)

// newScheme assembles a scheme over a panel in which two references share a
// variant inside region 1's LEFT primer, so that region 1 gets an alternate.
func newScheme(t *testing.T) *scheme.Scheme {
	v := schemetest.Substitute(genome, 15)
	refs := []fasta.Record{
		{ID: "primary", Seq: genome},
		{ID: "variant1", Seq: v},
		{ID: "variant2", Seq: v},
	}
	oracles := scheme.Oracles{Design: &schemetest.Tiler{}, Align: schemetest.Aligner{}}
	s, err := scheme.Assemble(context.Background(), refs, oracles, scheme.DefaultOpts, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.Regions)
	require.NotEmpty(t, s.Regions[0].Alternates)
	return s
}

func lines(b *bytes.Buffer) [][]string {
	var out [][]string
	for _, line := range strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n") {
		out = append(out, strings.Split(line, "\t"))
	}
	return out
}

func TestWriteBED(t *testing.T) {
	s := newScheme(t)
	var buf bytes.Buffer
	require.NoError(t, schemeio.WriteBED(&buf, s))
	rows := lines(&buf)
	require.Len(t, rows, 2*len(s.Regions))
	for i, r := range s.Regions {
		top := r.TopPair()
		left, right := rows[2*i], rows[2*i+1]
		assert.Equal(t, []string{"primary", strconv.Itoa(top.Left.Start), strconv.Itoa(top.Left.End()), top.Left.Name, r.Pool()}, left)
		assert.Equal(t, []string{"primary", strconv.Itoa(top.Right.End()), strconv.Itoa(top.Right.Start), top.Right.Name, r.Pool()}, right)
		assert.True(t, strings.HasSuffix(left[3], "_LEFT"))
		assert.True(t, strings.HasSuffix(right[3], "_RIGHT"))
	}
	// Alternates are not part of the BED file.
	assert.NotContains(t, buf.String(), "_alt")
}

func TestPrimers(t *testing.T) {
	s := newScheme(t)
	var buf bytes.Buffer
	require.NoError(t, schemeio.WritePrimers(&buf, s))
	assert.True(t, strings.HasPrefix(buf.String(), "name\tseq\tlength\t%gc\ttm (use 65)\n"))

	rows, err := schemeio.ReadPrimers(&buf)
	require.NoError(t, err)
	primers := s.Primers(true)
	require.Len(t, rows, len(primers))
	for i, c := range primers {
		assert.Equal(t, c.Name, rows[i].Name)
		assert.Equal(t, c.Seq, rows[i].Seq)
		assert.Equal(t, c.Len(), rows[i].Length)
		assert.InDelta(t, c.GC, rows[i].GC, 1e-9)
		assert.InDelta(t, c.Tm, rows[i].Tm, 1e-9)
	}
	assert.Equal(t, s.Regions[0].Alternates[0].Name, rows[2].Name)
	assert.Contains(t, rows[2].Name, "_LEFT_alt1")
}

func TestSnapshot(t *testing.T) {
	s := newScheme(t)
	var buf bytes.Buffer
	require.NoError(t, schemeio.WriteSnapshot(&buf, s, "run-1"))

	got, info, err := schemeio.ReadSnapshot(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "run-1", info.RunID)
	assert.Equal(t, []string{"primary", "variant1", "variant2"}, info.RefNames)
	assert.Equal(t, "primary", got.Primary().ID)
	assert.Equal(t, s.Complete, got.Complete)
	assert.Equal(t, s.StopReason, got.StopReason)
	assert.Equal(t, s.Stats, got.Stats)
	require.Len(t, got.Regions, len(s.Regions))
	for i, r := range s.Regions {
		g := got.Regions[i]
		assert.Equal(t, r.Num, g.Num)
		assert.Equal(t, r.Terminal, g.Terminal)
		require.Len(t, g.Pairs, len(r.Pairs))
		for j, p := range r.Pairs {
			checkCandidate(t, p.Left, g.Pairs[j].Left)
			checkCandidate(t, p.Right, g.Pairs[j].Right)
		}
		require.Len(t, g.Alternates, len(r.Alternates))
		for j, c := range r.Alternates {
			checkCandidate(t, c, g.Alternates[j])
		}
	}

	// Re-rendering the restored scheme gives the same BED file.
	var want, have bytes.Buffer
	require.NoError(t, schemeio.WriteBED(&want, s))
	require.NoError(t, schemeio.WriteBED(&have, got))
	assert.Equal(t, want.String(), have.String())
}

func checkCandidate(t *testing.T, want, got *primer.Candidate) {
	t.Helper()
	assert.Equal(t, want.Primer, got.Primer)
	assert.Equal(t, want.Start, got.Start)
	assert.True(t, got.Scored())
	assert.Equal(t, want.Alignments(), got.Alignments())
	assert.InDelta(t, want.Score(), got.Score(), 1e-9)
}

func TestSnapshotRunID(t *testing.T) {
	s := newScheme(t)
	var buf bytes.Buffer
	require.NoError(t, schemeio.WriteSnapshot(&buf, s, ""))
	_, info, err := schemeio.ReadSnapshot(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Len(t, info.RunID, 36)
	assert.NotEqual(t, schemeio.NewRunID(), schemeio.NewRunID())
}

func TestSnapshotCorrupt(t *testing.T) {
	_, _, err := schemeio.ReadSnapshot(bytes.NewReader([]byte("not a snapshot")))
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
}

func TestAlignmentReport(t *testing.T) {
	s := newScheme(t)
	var buf bytes.Buffer
	require.NoError(t, schemeio.WriteAlignmentReport(&buf, s))
	rows := lines(&buf)
	assert.Equal(t, "primer", rows[0][0])
	n := 0
	for _, c := range s.Primers(true) {
		n += len(c.Alignments())
	}
	require.Len(t, rows, n+1)
	// The top LEFT primer of region 1 against a reference carrying the
	// variant.
	top := s.Regions[0].TopPair().Left
	var row []string
	for _, r := range rows {
		if r[0] == top.Name && r[1] == "variant1" {
			row = r
		}
	}
	require.NotNil(t, row)
	assert.Equal(t, "true", row[2])
	assert.Equal(t, "95.00", row[5])
	assert.Equal(t, "false", row[6])
	assert.Equal(t, 1, strings.Count(row[8], "*"))
	assert.Equal(t, len(top.Seq), len(row[8]))
}

func TestWriteAll(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	s := newScheme(t)
	out := schemeio.DefaultOutputs(dir, "test")
	expect.EQ(t, out.BED, filepath.Join(dir, "test.bed"))
	require.NoError(t, schemeio.WriteAll(ctx, out, s, "run-2"))

	for _, path := range []string{out.BED, out.Primers, out.Snapshot, out.Refs, out.RefsIndex, out.Alignments} {
		data, err := ioutil.ReadFile(path)
		require.NoError(t, err, path)
		expect.True(t, len(data) > 0, path)
	}

	refs, err := fasta.Open(ctx, out.Refs)
	require.NoError(t, err)
	require.Len(t, refs, 3)
	expect.EQ(t, refs[1].Seq, s.Refs[1].Seq)

	fai, err := ioutil.ReadFile(out.RefsIndex)
	require.NoError(t, err)
	expect.HasSubstr(t, string(fai), "primary\t2000\t9\t60\t61\n")

	got, info, err := schemeio.OpenSnapshot(ctx, out.Snapshot)
	require.NoError(t, err)
	expect.EQ(t, info.RunID, "run-2")
	expect.EQ(t, len(got.Regions), len(s.Regions))

	// Empty names are skipped.
	sparse := schemeio.Outputs{BED: filepath.Join(dir, "only.bed")}
	require.NoError(t, schemeio.WriteAll(ctx, sparse, s, ""))
	_, err = ioutil.ReadFile(filepath.Join(dir, "only.tsv"))
	assert.Error(t, err)
}
