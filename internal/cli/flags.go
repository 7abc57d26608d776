package cli

import (
	"flag"

	"github.com/eshaffer321/bank-recon-backend/internal/application/recon"
)

// ReconFlags are the flags for the reconcile command.
type ReconFlags struct {
	Statement string
	DryRun    bool
	Threshold float64
	Batch     bool
	Verbose   bool
	Config    string
}

// ParseReconFlags parses reconcile flags from the command line.
func ParseReconFlags() ReconFlags {
	var flags ReconFlags
	flag.StringVar(&flags.Statement, "statement", "", "Path to the CSV bank statement")
	flag.BoolVar(&flags.DryRun, "dry-run", false, "Run without writing to the ledger")
	flag.Float64Var(&flags.Threshold, "threshold", 0, "Auto-create confidence floor (0 = configured default)")
	flag.BoolVar(&flags.Batch, "batch", false, "Skip interactive prompts, queue reviews instead")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.StringVar(&flags.Config, "config", "", "Configuration file path")
	flag.Parse()
	return flags
}

// ToOptions converts ReconFlags to run options.
func (f ReconFlags) ToOptions(base recon.Options) recon.Options {
	base.DryRun = f.DryRun
	if f.Threshold > 0 {
		base.AutoCreateThreshold = f.Threshold
	}
	return base
}
