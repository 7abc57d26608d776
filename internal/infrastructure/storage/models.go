package storage

import "time"

// ReconRun is one persisted reconciliation run.
type ReconRun struct {
	ID            string `json:"id"`
	StatementFile string `json:"statement_file"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	StartedAt     string `json:"started_at"`
	CompletedAt   string `json:"completed_at,omitempty"`
	DryRun        bool   `json:"dry_run"`
	Total         int    `json:"total"`
	Reconciled    int    `json:"reconciled"`
	AutoCreated   int    `json:"auto_created"`
	ManualReview  int    `json:"manual_review"`
	Errored       int    `json:"errored"`
	Status        string `json:"status"`
}

// Run statuses.
const (
	RunStatusRunning             = "running"
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
	RunStatusFailed              = "failed"
)

// TransactionOutcome is the terminal result of one statement
// transaction within a run. Every transaction of a run has exactly one.
type TransactionOutcome struct {
	ID             int64   `json:"id"`
	RunID          string  `json:"run_id"`
	ExternalID     string  `json:"external_id"`
	Date           string  `json:"date"`
	Amount         float64 `json:"amount"`
	Description    string  `json:"description"`
	Outcome        string  `json:"outcome"`
	Category       string  `json:"category,omitempty"`
	Confidence     float64 `json:"confidence"`
	MatchedEntryID string  `json:"matched_entry_id,omitempty"`
	MatchTier      int     `json:"match_tier,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// ReviewRecord is a queued manual-review request. Payload and decision
// are opaque JSON owned by the application layer; the store only tracks
// lifecycle.
type ReviewRecord struct {
	ID           int64  `json:"id"`
	RunID        string `json:"run_id"`
	ExternalID   string `json:"external_id"`
	Kind         string `json:"kind"`
	PayloadJSON  string `json:"payload_json"`
	Status       string `json:"status"`
	DecisionJSON string `json:"decision_json,omitempty"`
	CreatedAt    string `json:"created_at"`
	ResolvedAt   string `json:"resolved_at,omitempty"`
}

// Review statuses.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusResolved = "resolved"
	ReviewStatusSkipped  = "skipped"
)

// LearningStats aggregates the learning_examples table.
type LearningStats struct {
	Total            int        `json:"total"`
	Categorized      int        `json:"categorized"`
	WithCounterparty int        `json:"with_counterparty"`
	OldestExample    *time.Time `json:"oldest_example,omitempty"`
	NewestExample    *time.Time `json:"newest_example,omitempty"`
}
