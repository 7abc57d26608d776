package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// RunResponse represents a persisted reconciliation run.
type RunResponse struct {
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

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// OutcomeResponse represents one transaction's terminal result within a run.
type OutcomeResponse struct {
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
}

// OutcomeListResponse is returned when listing a run's outcomes.
type OutcomeListResponse struct {
	RunID    string            `json:"run_id"`
	Outcomes []OutcomeResponse `json:"outcomes"`
	Count    int               `json:"count"`
}

// ReviewResponse represents a queued manual-review request.
type ReviewResponse struct {
	ID          int64  `json:"id"`
	RunID       string `json:"run_id"`
	ExternalID  string `json:"external_id"`
	Kind        string `json:"kind"`
	PayloadJSON string `json:"payload_json"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	ResolvedAt  string `json:"resolved_at,omitempty"`
}

// ReviewListResponse is returned when listing pending reviews.
type ReviewListResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
	Count   int              `json:"count"`
}

// LearningStatsResponse aggregates the learning history.
type LearningStatsResponse struct {
	Total            int    `json:"total"`
	Categorized      int    `json:"categorized"`
	WithCounterparty int    `json:"with_counterparty"`
	OldestExample    string `json:"oldest_example,omitempty"`
	NewestExample    string `json:"newest_example,omitempty"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}
