package storage

import "github.com/eshaffer321/bank-recon-backend/internal/domain/model"

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	ExampleRepository
	RunRepository
	OutcomeRepository
	ReviewRepository
	Close() error
}

// ExampleRepository is the append-only learning history. Examples are
// never updated or deleted; the classifier re-derives itself from the
// full list.
type ExampleRepository interface {
	// AppendExample persists one example and fills in its ID and
	// CreatedAt.
	AppendExample(example *model.LearningExample) error

	// ListExamples returns the full history in insertion order.
	ListExamples() ([]model.LearningExample, error)

	// GetLearningStats aggregates the history.
	GetLearningStats() (*LearningStats, error)
}

// RunRepository tracks reconciliation runs.
type RunRepository interface {
	// StartRun records a run in the running state.
	StartRun(run *ReconRun) error

	// CompleteRun records the final counts and status of a run.
	CompleteRun(run *ReconRun) error

	// GetRun retrieves a run by ID, nil when absent.
	GetRun(id string) (*ReconRun, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]ReconRun, error)
}

// OutcomeRepository records per-transaction results.
type OutcomeRepository interface {
	// SaveOutcome appends one transaction outcome.
	SaveOutcome(outcome *TransactionOutcome) error

	// ListOutcomes returns a run's outcomes in statement order.
	ListOutcomes(runID string) ([]TransactionOutcome, error)
}

// ReviewRepository queues unresolved manual-review requests across runs.
type ReviewRepository interface {
	// SaveReviewRequest enqueues a pending review and fills in its ID.
	SaveReviewRequest(req *ReviewRecord) error

	// ListPendingReviews returns unresolved reviews, oldest first.
	ListPendingReviews(limit int) ([]ReviewRecord, error)

	// GetReview retrieves a review by ID, nil when absent.
	GetReview(id int64) (*ReviewRecord, error)

	// ResolveReview stores the decision and closes the request.
	ResolveReview(id int64, status, decisionJSON string) error
}
