package main

import (
	"context"
	"fmt"
	"os"

	"github.com/eshaffer321/bank-recon-backend/internal/application/recon"
	"github.com/eshaffer321/bank-recon-backend/internal/cli"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/config"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/logging"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

func main() {
	flags := cli.ParseReconFlags()
	if flags.Statement == "" {
		fmt.Fprintln(os.Stderr, "usage: reconcile -statement <file.csv> [-dry-run] [-batch] [-threshold 0.6]")
		os.Exit(1)
	}

	cfg := config.LoadOrEnv()
	if flags.Config != "" {
		cfg = config.LoadOrEnvWithPath(flags.Config)
	}

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLogger(loggingCfg)

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var reviewer recon.Reviewer
	if !flags.Batch {
		reviewer = cli.NewInteractiveReviewer(os.Stdin, os.Stdout)
	}

	engine := cli.BuildEngine(cfg, store, reviewer, logger)
	opts := flags.ToOptions(cli.EngineOptions(cfg))

	cli.PrintHeader(flags.Statement, flags.DryRun)

	report, err := engine.RunWithOptions(context.Background(), flags.Statement, opts)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	cli.PrintReport(report, store)

	if report.Failed > 0 {
		os.Exit(2)
	}
}
