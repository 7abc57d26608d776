package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_FreshDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fresh.db")

	s, err := NewStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	applied, err := s.getAppliedMigrations()
	require.NoError(t, err)
	assert.Len(t, applied, len(allMigrations))
	for _, m := range allMigrations {
		assert.True(t, applied[m.Version], "migration %d not applied", m.Version)
	}
}

func TestMigrations_TablesExist(t *testing.T) {
	s := newTestStorage(t)

	tables := []string{"learning_examples", "recon_runs", "transaction_outcomes", "review_requests"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrations_ReopenDoesNotReapply(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	s, err := NewStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening runs the migration loop again; everything is already
	// applied so it must be a no-op.
	s, err = NewStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(allMigrations), count)
}

func TestMigrations_VersionsAreOrdered(t *testing.T) {
	for i, m := range allMigrations {
		assert.Equal(t, i+1, m.Version, "migration %q out of order", m.Name)
		assert.NotNil(t, m.Up)
	}
}
