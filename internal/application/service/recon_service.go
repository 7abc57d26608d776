package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/bank-recon-backend/internal/application/recon"
)

// RunStatus represents the current state of a reconciliation job.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// RunRequest holds parameters for starting a reconciliation run.
type RunRequest struct {
	StatementPath string
	DryRun        bool
	// Threshold overrides the configured auto-create threshold when
	// non-zero.
	Threshold float64
}

// RunProgress holds real-time progress information.
type RunProgress struct {
	CurrentPhase string // "pending", "initializing", "processing", "completed", "failed"
	Total        int
	Processed    int
	LastUpdate   time.Time
}

// RunJob represents a running or completed reconciliation job.
type RunJob struct {
	ID          string
	Status      RunStatus
	Request     RunRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    RunProgress
	Report      *recon.Report
	Error       error
	cancelFunc  context.CancelFunc
}

// Runner executes a reconciliation run. *recon.Engine satisfies it.
type Runner interface {
	RunWithOptions(ctx context.Context, statementPath string, opts recon.Options) (*recon.Report, error)
}

// ReconService manages reconciliation jobs behind the API. Statement
// files are locked so the same file cannot be reconciled twice
// concurrently.
type ReconService struct {
	engine  Runner
	options recon.Options
	logger  *slog.Logger

	// Job management
	jobs      map[string]*RunJob
	jobsMutex sync.RWMutex

	// Statement-level locking (one run per statement at a time)
	statementLocks map[string]*sync.Mutex
	locksMutex     sync.Mutex
}

// NewReconService creates a new reconciliation service.
func NewReconService(engine Runner, options recon.Options, logger *slog.Logger) *ReconService {
	return &ReconService{
		engine:         engine,
		options:        options,
		logger:         logger.With("system", "service"),
		jobs:           make(map[string]*RunJob),
		statementLocks: make(map[string]*sync.Mutex),
	}
}

// StartRun starts a new reconciliation job asynchronously.
// Note: The passed context is NOT used as the parent for the background
// job; jobs use context.Background() so they survive the HTTP request
// that started them. Use CancelRun() to cancel a running job.
func (s *ReconService) StartRun(_ context.Context, req RunRequest) (string, error) {
	if req.StatementPath == "" {
		return "", fmt.Errorf("statement path is required")
	}

	if !s.tryLockStatement(req.StatementPath) {
		return "", fmt.Errorf("run already in progress for statement: %s", req.StatementPath)
	}

	jobID := uuid.New().String()
	jobCtx, cancel := context.WithCancel(context.Background())

	job := &RunJob{
		ID:         jobID,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  time.Now(),
		cancelFunc: cancel,
		Progress:   RunProgress{CurrentPhase: "pending", LastUpdate: time.Now()},
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, job)

	s.logger.Info("reconciliation job started",
		"job_id", jobID,
		"statement", req.StatementPath,
		"dry_run", req.DryRun,
	)

	return jobID, nil
}

// GetRunJob retrieves a job by ID.
func (s *ReconService) GetRunJob(jobID string) (*RunJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	return job, nil
}

// ListActiveRunJobs returns all running or pending jobs.
func (s *ReconService) ListActiveRunJobs() []*RunJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	var active []*RunJob
	for _, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			active = append(active, job)
		}
	}
	return active
}

// ListAllRunJobs returns all jobs (for debugging/monitoring).
func (s *ReconService) ListAllRunJobs() []*RunJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*RunJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelRun cancels a running job.
func (s *ReconService) CancelRun(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.Progress.CurrentPhase = "cancelled"
	job.Progress.LastUpdate = now

	s.logger.Info("reconciliation job cancelled", "job_id", jobID)
	return nil
}

// runJob executes the job in a background goroutine.
func (s *ReconService) runJob(ctx context.Context, job *RunJob) {
	defer s.unlockStatement(job.Request.StatementPath)

	s.updateJobStatus(job.ID, StatusRunning, RunProgress{
		CurrentPhase: "initializing",
		LastUpdate:   time.Now(),
	})

	opts := s.options
	opts.DryRun = job.Request.DryRun
	if job.Request.Threshold > 0 {
		opts.AutoCreateThreshold = job.Request.Threshold
	}
	opts.Progress = func(done, total int) {
		s.updateJobProgress(job.ID, done, total)
	}

	report, err := s.engine.RunWithOptions(ctx, job.Request.StatementPath, opts)
	if err != nil {
		if ctx.Err() == context.Canceled {
			// Already marked as cancelled in CancelRun
			return
		}
		s.failJob(job.ID, err)
		return
	}

	s.completeJob(job.ID, report)
}

// updateJobStatus updates a job's status and progress.
func (s *ReconService) updateJobStatus(jobID string, status RunStatus, progress RunProgress) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.Status = status
		job.Progress = progress
	}
}

// updateJobProgress updates job progress from the engine callback.
func (s *ReconService) updateJobProgress(jobID string, done, total int) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.Progress.CurrentPhase = "processing"
		job.Progress.Processed = done
		job.Progress.Total = total
		job.Progress.LastUpdate = time.Now()
	}
}

// completeJob marks a job as completed with its report.
func (s *ReconService) completeJob(jobID string, report *recon.Report) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Report = report
		job.Progress.CurrentPhase = "completed"
		job.Progress.Processed = report.Total
		job.Progress.Total = report.Total
		job.Progress.LastUpdate = now
		s.logger.Info("reconciliation job completed",
			"job_id", jobID,
			"run_id", report.RunID,
			"total", report.Total,
			"reconciled", report.Reconciled,
			"auto_created", report.AutoCreated,
			"manual_review", report.ManualReview,
			"errors", report.Failed,
		)
	}
}

// failJob marks a job as failed with an error.
func (s *ReconService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err
		job.Progress = RunProgress{
			CurrentPhase: "failed",
			LastUpdate:   now,
		}
		s.logger.Error("reconciliation job failed", "job_id", jobID, "error", err)
	}
}

// tryLockStatement attempts to acquire the lock for a statement file.
func (s *ReconService) tryLockStatement(path string) bool {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if _, exists := s.statementLocks[path]; !exists {
		s.statementLocks[path] = &sync.Mutex{}
	}

	return s.statementLocks[path].TryLock()
}

// unlockStatement releases the lock for a statement file.
func (s *ReconService) unlockStatement(path string) {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if lock, exists := s.statementLocks[path]; exists {
		lock.Unlock()
	}
}

// CleanupOldJobs removes completed jobs older than the specified duration.
func (s *ReconService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.Status == StatusCompleted || job.Status == StatusFailed || job.Status == StatusCancelled {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(s.jobs, id)
				removed++
			}
		}
	}

	return removed
}
