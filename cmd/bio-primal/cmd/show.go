package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/primal/scheme"
	"github.com/grailbio/primal/schemeio"
	"v.io/x/lib/cmdline"
)

func newCmdShow() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "show",
		Short:    "Print a scheme stored in a snapshot",
		ArgsName: "snapshot.rio",
	}
	format := cmd.Flags.String("format", "bed", `Output format, one of:
  bed        primer coordinates
  tsv        primer properties, alternates included
  alignments per-reference alignments of every primer
  summary    run ID, regions and assembly statistics`)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return env.UsageErrorf("show takes one snapshot path, but got %v", argv)
		}
		s, info, err := schemeio.OpenSnapshot(context.Background(), argv[0])
		if err != nil {
			return err
		}
		return show(env.Stdout, *format, s, info)
	})
	return cmd
}

func show(w io.Writer, format string, s *scheme.Scheme, info schemeio.SnapshotInfo) error {
	switch format {
	case "bed":
		return schemeio.WriteBED(w, s)
	case "tsv":
		return schemeio.WritePrimers(w, s)
	case "alignments":
		return schemeio.WriteAlignmentReport(w, s)
	case "summary":
		return summary(w, s, info)
	}
	return fmt.Errorf("unknown format %q", format)
}

func summary(w io.Writer, s *scheme.Scheme, info schemeio.SnapshotInfo) error {
	status := "complete"
	if !s.Complete {
		status = "incomplete: " + s.StopReason
	}
	st := s.Stats
	_, err := fmt.Fprintf(w, `run: %s
references: %d (primary %s)
regions: %d
status: %s
design calls: %d (%d empty)
window steps: %d widen, %d left, %d right
candidates: %d, alternates: %d
`, info.RunID, len(info.RefNames), s.Primary().ID, len(s.Regions), status,
		st.DesignCalls, st.EmptyCalls, st.WidenSteps, st.LeftSteps, st.RightSteps,
		st.Candidates, st.Alternates)
	return err
}
