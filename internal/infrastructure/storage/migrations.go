package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "learning_examples",
		Up:      migration001LearningExamples,
	},
	{
		Version: 2,
		Name:    "recon_runs",
		Up:      migration002ReconRuns,
	},
	{
		Version: 3,
		Name:    "transaction_outcomes",
		Up:      migration003TransactionOutcomes,
	},
	{
		Version: 4,
		Name:    "review_requests",
		Up:      migration004ReviewRequests,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// ================================================================
// MIGRATION FUNCTIONS
// ================================================================

// migration001LearningExamples creates the append-only learning history.
// Rows are never updated; the classifier reads the full table on retrain.
func migration001LearningExamples(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS learning_examples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			normalized_description TEXT NOT NULL,
			amount REAL NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			counterparty TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_learning_examples_category
		 ON learning_examples(category)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// migration002ReconRuns creates the run tracking table
func migration002ReconRuns(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS recon_runs (
			id TEXT PRIMARY KEY,
			statement_file TEXT NOT NULL,
			period_start TEXT NOT NULL,
			period_end TEXT NOT NULL,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP,
			dry_run BOOLEAN DEFAULT 0,
			total INTEGER DEFAULT 0,
			reconciled INTEGER DEFAULT 0,
			auto_created INTEGER DEFAULT 0,
			manual_review INTEGER DEFAULT 0,
			errored INTEGER DEFAULT 0,
			status TEXT DEFAULT 'running'
		)`,

		`CREATE INDEX IF NOT EXISTS idx_recon_runs_started
		 ON recon_runs(started_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// migration003TransactionOutcomes creates the per-transaction result table
func migration003TransactionOutcomes(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transaction_outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			date TEXT NOT NULL,
			amount REAL NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			matched_entry_id TEXT NOT NULL DEFAULT '',
			match_tier INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES recon_runs(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transaction_outcomes_run_id
		 ON transaction_outcomes(run_id)`,

		`CREATE INDEX IF NOT EXISTS idx_transaction_outcomes_external_id
		 ON transaction_outcomes(external_id)`,

		`CREATE INDEX IF NOT EXISTS idx_transaction_outcomes_outcome
		 ON transaction_outcomes(outcome)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// migration004ReviewRequests creates the manual-review queue
func migration004ReviewRequests(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS review_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			payload_json TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'pending',
			decision_json TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			resolved_at TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES recon_runs(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_review_requests_status
		 ON review_requests(status)`,

		`CREATE INDEX IF NOT EXISTS idx_review_requests_run_id
		 ON review_requests(run_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
