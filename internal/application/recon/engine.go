package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/bank-recon-backend/internal/adapters/statement"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/index"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/matcher"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

// LedgerClient is the full ledger collaborator surface a run needs:
// reads for index building, writes for reconciliation, catalogs for
// name resolution.
type LedgerClient interface {
	index.LedgerReader
	LedgerWriter
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListCounterparties(ctx context.Context) ([]model.Counterparty, error)
}

// LearningStore is the Learning surface plus retrain control. The run
// retrains once up front so every transaction sees the same model.
type LearningStore interface {
	Learning
	RetrainNow() error
}

// EngineConfig bundles the per-run tunables.
type EngineConfig struct {
	Matcher matcher.Config
	Builder index.BuilderConfig
	Options Options
}

// DefaultEngineConfig mirrors production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Matcher: matcher.DefaultConfig(),
		Builder: index.DefaultBuilderConfig(),
		Options: DefaultOptions(),
	}
}

// Engine executes reconciliation runs. It is safe to share across runs;
// each Run builds its own index and controller so no matching state
// leaks between statements or accounts.
type Engine struct {
	ledger   LedgerClient
	learning LearningStore
	repo     storage.Repository
	reviewer Reviewer
	config   EngineConfig
	logger   *slog.Logger
}

// NewEngine wires the run collaborators. A nil reviewer runs headless.
func NewEngine(ledger LedgerClient, learning LearningStore, repo storage.Repository, reviewer Reviewer, config EngineConfig, logger *slog.Logger) *Engine {
	return &Engine{
		ledger:   ledger,
		learning: learning,
		repo:     repo,
		reviewer: reviewer,
		config:   config,
		logger:   logger.With("system", "engine"),
	}
}

// Run reconciles one statement file end to end and returns the report.
// A parse or index-load failure aborts before anything is mutated;
// per-transaction failures are recorded and the run continues.
func (e *Engine) Run(ctx context.Context, statementPath string) (*Report, error) {
	return e.RunWithOptions(ctx, statementPath, e.config.Options)
}

// RunWithOptions is Run with per-call option overrides.
func (e *Engine) RunWithOptions(ctx context.Context, statementPath string, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	report := &Report{
		RunID:     uuid.New().String(),
		DryRun:    opts.DryRun,
		StartedAt: time.Now().UTC(),
	}
	logger := e.logger.With("run_id", report.RunID)

	stmt, err := statement.ParseFile(statementPath)
	if err != nil {
		return nil, err
	}
	report.Period = stmt.Period
	report.Total = len(stmt.Transactions)
	logger.Info("statement parsed",
		"file", statementPath,
		"transactions", report.Total,
		"period", stmt.Period.String(),
		"dry_run", opts.DryRun,
	)

	// Nothing has been mutated yet; an index failure aborts cleanly.
	builder := index.NewBuilder(e.ledger, e.config.Builder, e.logger)
	idx, err := builder.Build(ctx, stmt.Period)
	if err != nil {
		return nil, err
	}

	if err := e.learning.RetrainNow(); err != nil {
		// The run can proceed; the classifier degrades to rules and
		// heuristics.
		logger.Warn("classifier retrain failed", "error", err)
	}

	catalog := e.loadCatalog(ctx, logger)
	controller := NewController(
		matcher.NewMatcher(e.config.Matcher),
		e.learning,
		e.ledger,
		e.reviewer,
		catalog,
		opts,
		e.logger,
	)

	runRecord := &storage.ReconRun{
		ID:            report.RunID,
		StatementFile: filepath.Base(statementPath),
		PeriodStart:   stmt.Period.Start.Format("2006-01-02"),
		PeriodEnd:     stmt.Period.End.Format("2006-01-02"),
		DryRun:        opts.DryRun,
	}
	if err := e.repo.StartRun(runRecord); err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}

	for i, tx := range stmt.Transactions {
		e.processOne(ctx, controller, idx, tx, report, logger)
		if opts.Progress != nil {
			opts.Progress(i+1, report.Total)
		}
	}

	report.FinishedAt = time.Now().UTC()
	e.completeRun(runRecord, report, logger)

	logger.Info("run complete",
		"total", report.Total,
		"reconciled", report.Reconciled,
		"auto_created", report.AutoCreated,
		"manual_review", report.ManualReview,
		"failed", report.Failed,
	)
	return report, nil
}

// processOne drives a single transaction and records its outcome.
// Failures land in the report's error list; the batch continues.
func (e *Engine) processOne(ctx context.Context, controller *Controller, idx *index.PeriodIndex, tx model.BankTransaction, report *Report, logger *slog.Logger) {
	decision, err := controller.Process(ctx, tx, idx)
	if err != nil {
		txErr := TransactionError{
			ExternalID: tx.ExternalID,
			Stage:      "decide",
			Err:        err,
			Message:    err.Error(),
		}
		report.Errors = append(report.Errors, txErr)
		report.record(model.OutcomeError)
		logger.Warn("transaction failed", "external_id", tx.ExternalID, "error", err)
		e.saveOutcome(report.RunID, tx, Decision{}, err, logger)
		return
	}

	report.record(decision.Outcome())
	if decision.State == StateManualReview {
		e.queueReview(report.RunID, tx, decision, logger)
	}
	e.saveOutcome(report.RunID, tx, decision, nil, logger)
}

func (e *Engine) saveOutcome(runID string, tx model.BankTransaction, decision Decision, failure error, logger *slog.Logger) {
	outcome := &storage.TransactionOutcome{
		RunID:       runID,
		ExternalID:  tx.ExternalID,
		Date:        tx.Date.Format("2006-01-02"),
		Amount:      tx.Amount,
		Description: tx.RawDescription,
		Category:    decision.Category,
		Confidence:  decision.Confidence,
	}
	if failure != nil {
		outcome.Outcome = string(model.OutcomeError)
		outcome.ErrorMessage = failure.Error()
	} else {
		outcome.Outcome = string(decision.Outcome())
		if decision.Candidate != nil {
			outcome.MatchedEntryID = decision.Candidate.Entry.InternalID
			outcome.MatchTier = decision.Candidate.Tier
		}
	}
	if err := e.repo.SaveOutcome(outcome); err != nil {
		logger.Warn("failed to record outcome", "external_id", tx.ExternalID, "error", err)
	}
}

// queueReview persists an unresolved transaction so a later interactive
// session can pick it up.
func (e *Engine) queueReview(runID string, tx model.BankTransaction, decision Decision, logger *slog.Logger) {
	payload, err := json.Marshal(map[string]any{
		"date":        tx.Date.Format("2006-01-02"),
		"amount":      tx.Amount,
		"description": tx.RawDescription,
		"kind":        tx.Kind,
	})
	if err != nil {
		payload = []byte("{}")
	}
	kind := ReviewCategorize
	if decision.Candidate != nil {
		kind = ReviewConfirmMatch
	}
	record := &storage.ReviewRecord{
		RunID:       runID,
		ExternalID:  tx.ExternalID,
		Kind:        string(kind),
		PayloadJSON: string(payload),
	}
	if err := e.repo.SaveReviewRequest(record); err != nil {
		logger.Warn("failed to queue review", "external_id", tx.ExternalID, "error", err)
	}
}

func (e *Engine) completeRun(runRecord *storage.ReconRun, report *Report, logger *slog.Logger) {
	runRecord.Total = report.Total
	runRecord.Reconciled = report.Reconciled
	runRecord.AutoCreated = report.AutoCreated
	runRecord.ManualReview = report.ManualReview
	runRecord.Errored = report.Failed
	runRecord.Status = storage.RunStatusCompleted
	if report.Failed > 0 {
		runRecord.Status = storage.RunStatusCompletedWithErrors
	}
	if err := e.repo.CompleteRun(runRecord); err != nil {
		logger.Warn("failed to record run completion", "error", err)
	}
}

// loadCatalog fetches category and counterparty catalogs. Failures are
// non-fatal; names then pass through unresolved.
func (e *Engine) loadCatalog(ctx context.Context, logger *slog.Logger) *Catalog {
	categories, err := e.ledger.ListCategories(ctx)
	if err != nil {
		logger.Warn("failed to load category catalog", "error", err)
	}
	counterparties, err := e.ledger.ListCounterparties(ctx)
	if err != nil {
		logger.Warn("failed to load counterparty catalog", "error", err)
	}
	return NewCatalog(categories, counterparties)
}
