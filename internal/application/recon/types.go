// Package recon orchestrates a reconciliation run: statement in, each
// transaction matched against the ledger or categorized and created,
// every outcome recorded.
package recon

import (
	"fmt"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// State is where a transaction sits in the decision pipeline. Every
// transaction starts UNMATCHED and ends in one of the other four.
type State string

const (
	StateUnmatched            State = "UNMATCHED"
	StateReconciled           State = "RECONCILED"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateManualReview         State = "MANUAL_REVIEW"
	StateAutoCreated          State = "AUTO_CREATED"
)

// Options are the run-level knobs. Zero values are replaced by
// DefaultOptions equivalents at run start.
type Options struct {
	// AutoCreateThreshold is the minimum model confidence for creating
	// a ledger entry from a prediction without operator input.
	AutoCreateThreshold float64
	// SimilarLimit caps how many historical labelings are retrieved
	// per transaction.
	SimilarLimit int
	// ReviewTimeout bounds how long a review request may wait for an
	// answer before degrading to a skip. Zero means wait forever.
	ReviewTimeout time.Duration
	// DryRun evaluates every decision but performs no ledger mutation
	// and persists no learning example.
	DryRun bool
	// Progress, when set, is called after each transaction with the
	// number processed so far and the statement total.
	Progress func(done, total int)
}

// DefaultOptions returns the standard run configuration.
func DefaultOptions() Options {
	return Options{
		AutoCreateThreshold: 0.6,
		SimilarLimit:        5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AutoCreateThreshold <= 0 {
		o.AutoCreateThreshold = d.AutoCreateThreshold
	}
	if o.SimilarLimit <= 0 {
		o.SimilarLimit = d.SimilarLimit
	}
	return o
}

// TransactionError is one per-transaction failure recorded during a run.
// Failures do not abort the batch.
type TransactionError struct {
	ExternalID string `json:"external_id"`
	Stage      string `json:"stage"`
	Err        error  `json:"-"`
	Message    string `json:"message"`
}

func (e TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed during %s: %v", e.ExternalID, e.Stage, e.Err)
}

// Report is the final accounting of a run. Outcome counts plus the error
// list cover every statement transaction; none is silently dropped.
type Report struct {
	RunID        string             `json:"run_id"`
	Period       model.Period       `json:"-"`
	DryRun       bool               `json:"dry_run"`
	Total        int                `json:"total"`
	Reconciled   int                `json:"reconciled"`
	AutoCreated  int                `json:"auto_created"`
	ManualReview int                `json:"manual_review"`
	Failed       int                `json:"failed"`
	Errors       []TransactionError `json:"errors,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
}

// record tallies one terminal outcome into the report.
func (r *Report) record(outcome model.Outcome) {
	switch outcome {
	case model.OutcomeReconciled:
		r.Reconciled++
	case model.OutcomeAutoCreated:
		r.AutoCreated++
	case model.OutcomeManualReview:
		r.ManualReview++
	case model.OutcomeError:
		r.Failed++
	}
}
