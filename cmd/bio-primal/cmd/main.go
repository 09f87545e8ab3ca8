package cmd

import (
	golog "log"

	"v.io/x/lib/cmdline"
)

func newRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-primal",
		Short:    "Design tiling amplicon schemes for multiplex PCR",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdMultiplex(),
			newCmdShow(),
		},
	}
}

// Run parses the command line and runs the selected subcommand.
func Run() {
	golog.SetFlags(golog.Ldate | golog.Ltime | golog.Lmicroseconds | golog.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newRoot())
}
