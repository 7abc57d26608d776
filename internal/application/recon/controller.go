package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/classifier"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/index"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/matcher"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// similarAcceptFloor is the overlap similarity above which a historical
// labeling is trusted without operator input.
const similarAcceptFloor = 0.8

// Auto-create confidences for the non-model signals.
const (
	similarConfidence   = 0.85
	ruleConfidence      = 0.8
	heuristicConfidence = 0.75
)

// LedgerWriter is the mutation half of the ledger collaborator.
type LedgerWriter interface {
	CreateEntry(ctx context.Context, entry model.NewEntry) (model.LedgerEntry, error)
	MarkReconciled(ctx context.Context, kind model.SourceKind, id string) error
}

// Learning is the classifier surface the controller consults and feeds.
type Learning interface {
	Add(example model.LearningExample) error
	Predict(description string, amount float64) (string, float64)
	SuggestSimilar(description string, limit int) []classifier.Similar
}

// Decision is one transaction's terminal result.
type Decision struct {
	State      State
	Candidate  *model.MatchCandidate
	Category   string
	Confidence float64
	// Created is set when a ledger entry was created (nil on dry runs).
	Created *model.LedgerEntry
}

// Outcome maps the terminal state to the persisted outcome label.
func (d Decision) Outcome() model.Outcome {
	switch d.State {
	case StateReconciled:
		return model.OutcomeReconciled
	case StateAutoCreated:
		return model.OutcomeAutoCreated
	default:
		return model.OutcomeManualReview
	}
}

// Controller is the per-run decision state machine. It owns no
// cross-run state; the index and options are bound at construction and
// discarded with the run.
type Controller struct {
	matcher  *matcher.Matcher
	learning Learning
	writer   LedgerWriter
	reviewer Reviewer
	catalog  *Catalog
	opts     Options
	logger   *slog.Logger
}

// NewController wires the per-run collaborators. A nil reviewer skips
// every review request.
func NewController(m *matcher.Matcher, learning Learning, writer LedgerWriter, reviewer Reviewer, catalog *Catalog, opts Options, logger *slog.Logger) *Controller {
	if reviewer == nil {
		reviewer = AutoSkipReviewer{}
	}
	if opts.ReviewTimeout > 0 {
		reviewer = TimeoutReviewer{Inner: reviewer, Timeout: opts.ReviewTimeout}
	}
	if catalog == nil {
		catalog = NewCatalog(nil, nil)
	}
	return &Controller{
		matcher:  m,
		learning: learning,
		writer:   writer,
		reviewer: reviewer,
		catalog:  catalog,
		opts:     opts.withDefaults(),
		logger:   logger.With("system", "controller"),
	}
}

// Process drives one transaction from UNMATCHED to a terminal state.
func (c *Controller) Process(ctx context.Context, tx model.BankTransaction, idx *index.PeriodIndex) (Decision, error) {
	candidate := c.matcher.FindMatch(tx, idx)
	if candidate == nil {
		return c.classify(ctx, tx)
	}

	if candidate.Tier == 1 {
		if err := c.reconcile(ctx, candidate.Entry); err != nil {
			return Decision{}, err
		}
		return Decision{State: StateReconciled, Candidate: candidate, Confidence: candidate.Confidence}, nil
	}

	// Tier 2/3 candidates need operator confirmation.
	decision, err := c.reviewer.Review(ctx, ReviewRequest{
		Kind:        ReviewConfirmMatch,
		Transaction: tx,
		Candidate:   candidate,
	})
	if err != nil {
		if errors.Is(err, ErrReviewTimeout) {
			c.logger.Debug("match confirmation timed out, leaving for review", "external_id", tx.ExternalID)
			return Decision{State: StateManualReview, Candidate: candidate}, nil
		}
		return Decision{}, fmt.Errorf("confirming match: %w", err)
	}

	switch {
	case decision.Confirmed:
		if err := c.reconcile(ctx, candidate.Entry); err != nil {
			return Decision{}, err
		}
		c.learnFromEntry(tx, candidate)
		return Decision{State: StateReconciled, Candidate: candidate, Confidence: candidate.Confidence}, nil
	case decision.Skip:
		return Decision{State: StateManualReview, Candidate: candidate}, nil
	default:
		// Operator says different transaction; classify as unmatched.
		// The candidate stays consumed, which is the documented
		// first-come-first-served limitation of greedy matching.
		return c.classify(ctx, tx)
	}
}

// classify runs the signal chain over an unmatched transaction:
// trained model, similar history, keyword rules, amount heuristics,
// then manual review.
func (c *Controller) classify(ctx context.Context, tx model.BankTransaction) (Decision, error) {
	prediction, confidence := c.learning.Predict(tx.RawDescription, tx.Amount)
	if prediction != "" && confidence >= c.opts.AutoCreateThreshold {
		return c.autoCreate(ctx, tx, prediction, "", confidence)
	}

	similar := c.learning.SuggestSimilar(tx.RawDescription, c.opts.SimilarLimit)
	if len(similar) > 0 && similar[0].Similarity > similarAcceptFloor {
		return c.autoCreate(ctx, tx, similar[0].Category, similar[0].Counterparty, similarConfidence)
	}

	if category, ok := classifier.RuleCategory(tx.RawDescription, tx.Kind); ok {
		return c.autoCreate(ctx, tx, category, "", ruleConfidence)
	}

	if category, ok := classifier.HeuristicCategory(&tx); ok {
		return c.autoCreate(ctx, tx, category, "", heuristicConfidence)
	}

	decision, err := c.reviewer.Review(ctx, ReviewRequest{
		Kind:                 ReviewCategorize,
		Transaction:          tx,
		Prediction:           prediction,
		PredictionConfidence: confidence,
		Similar:              similar,
		Categories:           c.catalog.Categories(),
	})
	if err != nil {
		if errors.Is(err, ErrReviewTimeout) {
			return Decision{State: StateManualReview}, nil
		}
		return Decision{}, fmt.Errorf("requesting categorization: %w", err)
	}
	if decision.Skip || decision.Category == "" {
		return Decision{State: StateManualReview}, nil
	}
	return c.autoCreate(ctx, tx, decision.Category, decision.Counterparty, 1.0)
}

// autoCreate creates the ledger entry for tx and persists the labeling
// as a learning example. Dry runs report the decision without mutating
// anything.
func (c *Controller) autoCreate(ctx context.Context, tx model.BankTransaction, category, counterparty string, confidence float64) (Decision, error) {
	d := Decision{State: StateAutoCreated, Category: category, Confidence: confidence}
	if c.opts.DryRun {
		return d, nil
	}

	created, err := c.writer.CreateEntry(ctx, model.NewEntry{
		Date:         tx.Date,
		Amount:       tx.Amount,
		Description:  tx.RawDescription,
		Category:     c.catalog.CategoryCode(category),
		Counterparty: c.catalog.CounterpartyCode(counterparty),
		ExternalID:   tx.ExternalID,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("creating ledger entry: %w", err)
	}
	d.Created = &created

	if err := c.learning.Add(model.LearningExample{
		NormalizedDescription: tx.NormalizedDescription,
		Amount:                tx.Amount,
		Category:              category,
		Counterparty:          counterparty,
		Confidence:            confidence,
	}); err != nil {
		// The entry exists; losing the example only costs future
		// training signal.
		c.logger.Warn("failed to persist learning example", "external_id", tx.ExternalID, "error", err)
	}
	return d, nil
}

// reconcile marks the entry reconciled unless a previous run already
// did. Re-running over an updated ledger must not mark twice.
func (c *Controller) reconcile(ctx context.Context, entry *model.LedgerEntry) error {
	if entry.Reconciled {
		return nil
	}
	if c.opts.DryRun {
		return nil
	}
	if err := c.writer.MarkReconciled(ctx, entry.SourceKind, entry.InternalID); err != nil {
		return fmt.Errorf("marking entry %s reconciled: %w", entry.InternalID, err)
	}
	entry.Reconciled = true
	return nil
}

// learnFromEntry records a confirmed match as a labeled example when the
// ledger side carries a category.
func (c *Controller) learnFromEntry(tx model.BankTransaction, candidate *model.MatchCandidate) {
	if c.opts.DryRun || candidate.Entry.Category == "" {
		return
	}
	if err := c.learning.Add(model.LearningExample{
		NormalizedDescription: tx.NormalizedDescription,
		Amount:                tx.Amount,
		Category:              candidate.Entry.Category,
		Counterparty:          candidate.Entry.Counterparty,
		Confidence:            candidate.Confidence,
	}); err != nil {
		c.logger.Warn("failed to persist learning example", "external_id", tx.ExternalID, "error", err)
	}
}
