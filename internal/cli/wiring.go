package cli

import (
	"log/slog"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/adapters/ledger"
	"github.com/eshaffer321/bank-recon-backend/internal/application/recon"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/classifier"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/index"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/config"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

// EngineOptions derives run options from configuration.
func EngineOptions(cfg *config.Config) recon.Options {
	opts := recon.DefaultOptions()
	if cfg.Engine.AutoCreateThreshold > 0 {
		opts.AutoCreateThreshold = cfg.Engine.AutoCreateThreshold
	}
	if cfg.Engine.SimilarLimit > 0 {
		opts.SimilarLimit = cfg.Engine.SimilarLimit
	}
	if cfg.Engine.ReviewTimeoutSeconds > 0 {
		opts.ReviewTimeout = time.Duration(cfg.Engine.ReviewTimeoutSeconds) * time.Second
	}
	return opts
}

// BuildEngine assembles a reconciliation engine from configuration. The
// reviewer may be nil for headless operation.
func BuildEngine(cfg *config.Config, store *storage.Storage, reviewer recon.Reviewer, logger *slog.Logger) *recon.Engine {
	client := ledger.NewClient(ledger.Config{
		BaseURL:    cfg.Ledger.BaseURL,
		APIToken:   cfg.Ledger.APIToken,
		PageSize:   cfg.Ledger.PageSize,
		MaxRetries: cfg.Ledger.MaxRetries,
		Timeout:    time.Duration(cfg.Ledger.TimeoutSeconds) * time.Second,
	}, logger)

	learning := classifier.NewLearningStore(store, classifier.StoreConfig{
		RetrainBatch: cfg.Engine.RetrainBatch,
	}, logger)

	engineCfg := recon.DefaultEngineConfig()
	engineCfg.Options = EngineOptions(cfg)
	if cfg.Engine.MaxPages > 0 {
		engineCfg.Builder = index.BuilderConfig{MaxPages: cfg.Engine.MaxPages}
	}

	return recon.NewEngine(client, learning, store, reviewer, engineCfg, logger)
}
