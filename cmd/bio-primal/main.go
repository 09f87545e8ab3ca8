// bio-primal designs tiling amplicon schemes for multiplex PCR.
//
// Example:
//
//	bio-primal multiplex -amplicon-length=400 -output-dir=out panel.fasta MYSCHEME
//	bio-primal show out/MYSCHEME.rio
package main

import "github.com/grailbio/primal/cmd/bio-primal/cmd"

func main() {
	cmd.Run()
}
