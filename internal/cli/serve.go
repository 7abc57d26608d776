package cli

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/api"
	"github.com/eshaffer321/bank-recon-backend/internal/application/service"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/config"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/logging"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Addr    string
	Verbose bool
	Config  string
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags() *ServeFlags {
	flags := &ServeFlags{}
	flag.StringVar(&flags.Addr, "addr", "", "Listen address (empty = configured default)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.StringVar(&flags.Config, "config", "", "Configuration file path")
	flag.Parse()
	return flags
}

// RunServe runs the API server until interrupted.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// API-started runs are headless; unresolved transactions land in the
	// review queue and are answered over /api/reviews.
	engine := BuildEngine(cfg, store, nil, logger)
	reconService := service.NewReconService(engine, EngineOptions(cfg), logger)

	addr := cfg.API.ListenAddr
	if flags.Addr != "" {
		addr = flags.Addr
	}
	apiCfg := api.Config{
		Addr:           addr,
		AllowedOrigins: api.DefaultConfig().AllowedOrigins,
	}

	server := api.NewServer(apiCfg, store, reconService, logger)

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
