package main

import (
	"fmt"
	"os"

	"github.com/eshaffer321/bank-recon-backend/internal/cli"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/config"
)

func main() {
	flags := cli.ParseServeFlags()
	cfg := config.LoadOrEnv()
	if flags.Config != "" {
		cfg = config.LoadOrEnvWithPath(flags.Config)
	}

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "api server failed: %v\n", err)
		os.Exit(1)
	}
}
