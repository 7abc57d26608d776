package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// Storage provides SQLite database access for learning examples, run
// records and the review queue. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// AppendExample inserts one learning example, filling ID and CreatedAt.
func (s *Storage) AppendExample(example *model.LearningExample) error {
	if example.CreatedAt.IsZero() {
		example.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.Exec(`
		INSERT INTO learning_examples
		(normalized_description, amount, category, counterparty, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		example.NormalizedDescription,
		example.Amount,
		example.Category,
		example.Counterparty,
		example.Confidence,
		example.CreatedAt,
	)
	if err != nil {
		return err
	}

	example.ID, err = result.LastInsertId()
	return err
}

// ListExamples returns the full learning history in insertion order.
func (s *Storage) ListExamples() ([]model.LearningExample, error) {
	rows, err := s.db.Query(`
		SELECT id, normalized_description, amount, category, counterparty, confidence, created_at
		FROM learning_examples
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var examples []model.LearningExample
	for rows.Next() {
		var ex model.LearningExample
		err := rows.Scan(
			&ex.ID,
			&ex.NormalizedDescription,
			&ex.Amount,
			&ex.Category,
			&ex.Counterparty,
			&ex.Confidence,
			&ex.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		examples = append(examples, ex)
	}

	return examples, rows.Err()
}

// GetLearningStats aggregates the learning history.
func (s *Storage) GetLearningStats() (*LearningStats, error) {
	stats := &LearningStats{}
	var oldest, newest sql.NullTime

	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(CASE WHEN category != '' THEN 1 END),
			COUNT(CASE WHEN counterparty != '' THEN 1 END),
			MIN(created_at),
			MAX(created_at)
		FROM learning_examples
	`).Scan(
		&stats.Total,
		&stats.Categorized,
		&stats.WithCounterparty,
		&oldest,
		&newest,
	)
	if err != nil {
		return nil, err
	}

	if oldest.Valid {
		stats.OldestExample = &oldest.Time
	}
	if newest.Valid {
		stats.NewestExample = &newest.Time
	}
	return stats, nil
}

// StartRun records a run in the running state.
func (s *Storage) StartRun(run *ReconRun) error {
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt == "" {
		run.StartedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := s.db.Exec(`
		INSERT INTO recon_runs
		(id, statement_file, period_start, period_end, started_at, dry_run, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StatementFile,
		run.PeriodStart,
		run.PeriodEnd,
		run.StartedAt,
		run.DryRun,
		run.Status,
	)
	return err
}

// CompleteRun records the final counts and status of a run.
func (s *Storage) CompleteRun(run *ReconRun) error {
	if run.CompletedAt == "" {
		run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := s.db.Exec(`
		UPDATE recon_runs
		SET completed_at = ?,
		    total = ?,
		    reconciled = ?,
		    auto_created = ?,
		    manual_review = ?,
		    errored = ?,
		    status = ?
		WHERE id = ?
	`,
		run.CompletedAt,
		run.Total,
		run.Reconciled,
		run.AutoCreated,
		run.ManualReview,
		run.Errored,
		run.Status,
		run.ID,
	)
	return err
}

// GetRun retrieves a run by ID, nil when absent.
func (s *Storage) GetRun(id string) (*ReconRun, error) {
	run := &ReconRun{}
	var completedAt sql.NullString

	err := s.db.QueryRow(`
		SELECT id, statement_file, period_start, period_end, started_at, completed_at,
		       dry_run, total, reconciled, auto_created, manual_review, errored, status
		FROM recon_runs WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.StatementFile,
		&run.PeriodStart,
		&run.PeriodEnd,
		&run.StartedAt,
		&completedAt,
		&run.DryRun,
		&run.Total,
		&run.Reconciled,
		&run.AutoCreated,
		&run.ManualReview,
		&run.Errored,
		&run.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = completedAt.String
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Storage) ListRuns(limit int) ([]ReconRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, statement_file, period_start, period_end, started_at, completed_at,
		       dry_run, total, reconciled, auto_created, manual_review, errored, status
		FROM recon_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []ReconRun
	for rows.Next() {
		var run ReconRun
		var completedAt sql.NullString
		err := rows.Scan(
			&run.ID,
			&run.StatementFile,
			&run.PeriodStart,
			&run.PeriodEnd,
			&run.StartedAt,
			&completedAt,
			&run.DryRun,
			&run.Total,
			&run.Reconciled,
			&run.AutoCreated,
			&run.ManualReview,
			&run.Errored,
			&run.Status,
		)
		if err != nil {
			return nil, err
		}
		if completedAt.Valid {
			run.CompletedAt = completedAt.String
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// SaveOutcome appends one transaction outcome.
func (s *Storage) SaveOutcome(outcome *TransactionOutcome) error {
	if outcome.CreatedAt == "" {
		outcome.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	result, err := s.db.Exec(`
		INSERT INTO transaction_outcomes
		(run_id, external_id, date, amount, description, outcome,
		 category, confidence, matched_entry_id, match_tier, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		outcome.RunID,
		outcome.ExternalID,
		outcome.Date,
		outcome.Amount,
		outcome.Description,
		outcome.Outcome,
		outcome.Category,
		outcome.Confidence,
		outcome.MatchedEntryID,
		outcome.MatchTier,
		outcome.ErrorMessage,
		outcome.CreatedAt,
	)
	if err != nil {
		return err
	}

	outcome.ID, err = result.LastInsertId()
	return err
}

// ListOutcomes returns a run's outcomes in statement order.
func (s *Storage) ListOutcomes(runID string) ([]TransactionOutcome, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, external_id, date, amount, description, outcome,
		       category, confidence, matched_entry_id, match_tier, error_message, created_at
		FROM transaction_outcomes
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var outcomes []TransactionOutcome
	for rows.Next() {
		var o TransactionOutcome
		err := rows.Scan(
			&o.ID,
			&o.RunID,
			&o.ExternalID,
			&o.Date,
			&o.Amount,
			&o.Description,
			&o.Outcome,
			&o.Category,
			&o.Confidence,
			&o.MatchedEntryID,
			&o.MatchTier,
			&o.ErrorMessage,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

// SaveReviewRequest enqueues a pending review.
func (s *Storage) SaveReviewRequest(req *ReviewRecord) error {
	if req.Status == "" {
		req.Status = ReviewStatusPending
	}
	if req.CreatedAt == "" {
		req.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	result, err := s.db.Exec(`
		INSERT INTO review_requests
		(run_id, external_id, kind, payload_json, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		req.RunID,
		req.ExternalID,
		req.Kind,
		req.PayloadJSON,
		req.Status,
		req.CreatedAt,
	)
	if err != nil {
		return err
	}

	req.ID, err = result.LastInsertId()
	return err
}

// ListPendingReviews returns unresolved reviews, oldest first.
func (s *Storage) ListPendingReviews(limit int) ([]ReviewRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, run_id, external_id, kind, payload_json, status, decision_json, created_at, resolved_at
		FROM review_requests
		WHERE status = ?
		ORDER BY id ASC
		LIMIT ?
	`, ReviewStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reviews []ReviewRecord
	for rows.Next() {
		r, err := scanReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *r)
	}

	return reviews, rows.Err()
}

// GetReview retrieves a review by ID, nil when absent.
func (s *Storage) GetReview(id int64) (*ReviewRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, run_id, external_id, kind, payload_json, status, decision_json, created_at, resolved_at
		FROM review_requests WHERE id = ?
	`, id)

	r, err := scanReview(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ResolveReview stores the decision and closes the request.
func (s *Storage) ResolveReview(id int64, status, decisionJSON string) error {
	result, err := s.db.Exec(`
		UPDATE review_requests
		SET status = ?, decision_json = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, status, decisionJSON, time.Now().UTC().Format(time.RFC3339), id, ReviewStatusPending)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("review %d is not pending", id)
	}
	return nil
}

func scanReview(scan func(dest ...any) error) (*ReviewRecord, error) {
	r := &ReviewRecord{}
	var resolvedAt sql.NullString
	err := scan(
		&r.ID,
		&r.RunID,
		&r.ExternalID,
		&r.Kind,
		&r.PayloadJSON,
		&r.Status,
		&r.DecisionJSON,
		&r.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		r.ResolvedAt = resolvedAt.String
	}
	return r, nil
}
