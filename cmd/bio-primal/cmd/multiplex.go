package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/primal/align"
	"github.com/grailbio/primal/design"
	"github.com/grailbio/primal/encoding/fasta"
	"github.com/grailbio/primal/metrics"
	"github.com/grailbio/primal/scheme"
	"github.com/grailbio/primal/schemeio"
	"v.io/x/lib/cmdline"
)

type multiplexFlags struct {
	outputDir   string
	primer3     string
	oligoTm     string
	thermoPath  string
	metricsPath string
	writeRefs   bool
	alignPad    int
}

func newCmdMultiplex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "multiplex",
		Short: "Design a tiling scheme over a reference panel",
		Long: `
Multiplex designs overlapping amplicons along the first sequence of the
reference panel, alternating between two pools, and picks the primers that are
best conserved across all sequences of the panel.

It writes <prefix>.bed, <prefix>.tsv, <prefix>.rio (a snapshot that "show" can
read), <prefix>.alignments.tsv and, unless disabled, <prefix>.fasta to the
output directory.  A scheme that stops before the end of the genome is still
written; the command then fails.`,
		ArgsName: "panel.fasta prefix",
	}
	var (
		flags multiplexFlags
		opts  = scheme.DefaultOpts
	)
	fs := &cmd.Flags
	fs.StringVar(&flags.outputDir, "output-dir", ".", "Directory to write the scheme to.")
	fs.StringVar(&flags.primer3, "primer3", design.Primer3Binary, "Path or name of the primer3_core binary.")
	fs.StringVar(&flags.oligoTm, "oligotm", design.OligoTmBinary, `Path or name of primer3's oligotm binary, used for the melting
temperature of alternate primers.  If empty or not found, alternates are
reported with a melting temperature of 0.`)
	fs.StringVar(&flags.thermoPath, "thermo-params", "", "Directory of primer3's thermodynamic parameters. By default primer3's own setting is used.")
	fs.StringVar(&flags.metricsPath, "metrics", "", "If set, write Prometheus metrics of the run to this file.")
	fs.BoolVar(&flags.writeRefs, "write-refs", true, "Write a copy of the reference panel, with a .fai index.")
	fs.IntVar(&flags.alignPad, "align-pad", align.DefaultOpts.Pad, "Bases searched on either side of a primer's expected position on each reference.")

	fs.IntVar(&opts.AmpliconLength, "amplicon-length", opts.AmpliconLength, "Target amplicon length.")
	fs.IntVar(&opts.MinOverlap, "min-overlap", opts.MinOverlap, "Minimum overlap between consecutive amplicons.")
	fs.Float64Var(&opts.Variation, "variation", opts.Variation, "Allowed relative deviation from -amplicon-length, in (0, 1).")
	fs.IntVar(&opts.MaxCandidates, "max-candidates", opts.MaxCandidates, "Primer pairs requested from primer3 per call.")
	fs.IntVar(&opts.StepSize, "step-size", opts.StepSize, "Bases the search window moves between primer3 calls.")
	fs.IntVar(&opts.MaxAlternates, "max-alternates", opts.MaxAlternates, "Maximum alternate primers per primer.")
	fs.IntVar(&opts.PrimerMaxSize, "primer-max-size", opts.PrimerMaxSize, "Maximum primer length.")
	fs.IntVar(&opts.Parallelism, "parallelism", opts.Parallelism, "Concurrent alignments. 0 means the number of CPUs.")
	fs.DurationVar(&opts.OracleTimeout, "oracle-timeout", opts.OracleTimeout, "Timeout of each primer3 call. 0 disables it.")
	fs.IntVar(&opts.MaxSteps, "max-steps", opts.MaxSteps, "Maximum primer3 calls per region.")
	fs.Float64Var(&opts.Params.PrimerOptTm, "primer-opt-tm", opts.Params.PrimerOptTm, "Optimal primer melting temperature.")
	fs.Float64Var(&opts.Params.PrimerMinTm, "primer-min-tm", opts.Params.PrimerMinTm, "Minimum primer melting temperature.")
	fs.Float64Var(&opts.Params.PrimerMaxTm, "primer-max-tm", opts.Params.PrimerMaxTm, "Maximum primer melting temperature.")
	fs.Float64Var(&opts.Params.PrimerMinGC, "primer-min-gc", opts.Params.PrimerMinGC, "Minimum primer GC percentage.")
	fs.Float64Var(&opts.Params.PrimerMaxGC, "primer-max-gc", opts.Params.PrimerMaxGC, "Maximum primer GC percentage.")
	fs.IntVar(&opts.Params.MaxPolyX, "max-poly-x", opts.Params.MaxPolyX, "Longest mononucleotide run allowed in a primer.")

	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return env.UsageErrorf("multiplex takes a panel FASTA path and a prefix, but got %v", argv)
		}
		opts.Prefix = argv[1]
		return multiplex(context.Background(), flags, opts, argv[0])
	})
	return cmd
}

func newOracles(flags multiplexFlags, opts scheme.Opts) (scheme.Oracles, error) {
	primer3, err := design.NewPrimer3(flags.primer3, flags.thermoPath)
	if err != nil {
		return scheme.Oracles{}, err
	}
	alignOpts := align.DefaultOpts
	alignOpts.Pad = flags.alignPad
	oracles := scheme.Oracles{Design: primer3, Align: align.New(alignOpts)}
	if flags.oligoTm != "" {
		thermo, err := design.NewOligoTm(flags.oligoTm, opts.Params)
		switch {
		case err == nil:
			oracles.Thermo = thermo
		case errors.Is(errors.NotExist, err):
			log.Printf("%v: alternate primers get no melting temperature", err)
		default:
			return scheme.Oracles{}, err
		}
	}
	return oracles, nil
}

func multiplex(ctx context.Context, flags multiplexFlags, opts scheme.Opts, panelPath string) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	refs, err := fasta.Open(ctx, panelPath)
	if err != nil {
		return err
	}
	oracles, err := newOracles(flags, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(flags.outputDir, 0755); err != nil {
		return err
	}
	runID := schemeio.NewRunID()
	log.Printf("run %s: designing %s on %s (%d bases), %d references",
		runID, opts.Prefix, refs[0].ID, refs[0].Len(), len(refs))

	m := metrics.New()
	start := time.Now()
	s, err := scheme.Assemble(ctx, refs, oracles, opts, scheme.MultiObserver{scheme.LogObserver{}, m})
	if s == nil {
		return err
	}
	log.Printf("run %s: %d regions in %v", runID, len(s.Regions), time.Since(start))

	out := schemeio.DefaultOutputs(flags.outputDir, opts.Prefix)
	if !flags.writeRefs {
		out.Refs, out.RefsIndex = "", ""
	}
	if e := schemeio.WriteAll(ctx, out, s, runID); e != nil && err == nil {
		err = e
	}
	if flags.metricsPath != "" {
		if e := m.WriteTextfile(flags.metricsPath); e != nil && err == nil {
			err = e
		}
	}
	if err == nil && !s.Complete {
		err = fmt.Errorf("scheme %s is incomplete: %s", opts.Prefix, s.StopReason)
	}
	return err
}
