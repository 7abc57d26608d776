package dto

// StartRunRequest is the request body for starting a reconciliation job.
type StartRunRequest struct {
	StatementPath string  `json:"statement_path"` // Path to the CSV statement
	DryRun        bool    `json:"dry_run"`        // Preview mode, no ledger writes
	Threshold     float64 `json:"threshold"`      // Auto-create confidence floor (0 = configured default)
}

// StartRunResponse is returned when a job is started.
type StartRunResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// RunJobResponse represents a reconciliation job's status.
type RunJobResponse struct {
	JobID         string              `json:"job_id"`
	StatementPath string              `json:"statement_path"`
	Status        string              `json:"status"`
	DryRun        bool                `json:"dry_run"`
	StartedAt     string              `json:"started_at"`
	CompletedAt   *string             `json:"completed_at,omitempty"`
	Progress      RunProgressResponse `json:"progress"`
	Report        *RunReportResponse  `json:"report,omitempty"`
	Error         *string             `json:"error,omitempty"`
}

// RunProgressResponse represents real-time job progress.
type RunProgressResponse struct {
	CurrentPhase string `json:"current_phase"`
	Total        int    `json:"total"`
	Processed    int    `json:"processed"`
	LastUpdate   string `json:"last_update"`
}

// RunReportResponse represents the final accounting of a completed job.
type RunReportResponse struct {
	RunID        string `json:"run_id"`
	Total        int    `json:"total"`
	Reconciled   int    `json:"reconciled"`
	AutoCreated  int    `json:"auto_created"`
	ManualReview int    `json:"manual_review"`
	Failed       int    `json:"failed"`
}

// ActiveJobsResponse lists jobs that have not finished yet.
type ActiveJobsResponse struct {
	Jobs  []RunJobResponse `json:"jobs"`
	Count int              `json:"count"`
}

// AllJobsResponse lists all jobs (including completed).
type AllJobsResponse struct {
	Jobs  []RunJobResponse `json:"jobs"`
	Count int              `json:"count"`
}
