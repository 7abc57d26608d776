package recon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bank-recon-backend/internal/adapters/statement"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/classifier"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

// fakeLedger is a full in-memory ledger collaborator. Mutations persist
// across runs so multi-run scenarios see an updated ledger.
type fakeLedger struct {
	entries      []*model.LedgerEntry
	created      []model.NewEntry
	reconciled   []string
	createErr    error
	reconcileErr error
}

func (f *fakeLedger) ListEntries(_ context.Context, kind model.SourceKind, _, _ time.Time, page int) ([]model.LedgerEntry, bool, error) {
	if page > 1 {
		return nil, true, nil
	}
	var out []model.LedgerEntry
	for _, e := range f.entries {
		if e.SourceKind == kind {
			out = append(out, *e)
		}
	}
	return out, true, nil
}

func (f *fakeLedger) FetchEntryDetail(_ context.Context, _ model.SourceKind, id string) (model.LedgerEntry, error) {
	for _, e := range f.entries {
		if e.InternalID == id {
			return *e, nil
		}
	}
	return model.LedgerEntry{}, errors.New("not found")
}

func (f *fakeLedger) CreateEntry(_ context.Context, entry model.NewEntry) (model.LedgerEntry, error) {
	if f.createErr != nil {
		return model.LedgerEntry{}, f.createErr
	}
	f.created = append(f.created, entry)
	return model.LedgerEntry{InternalID: "new-1", Amount: entry.Amount, Date: entry.Date}, nil
}

func (f *fakeLedger) MarkReconciled(_ context.Context, _ model.SourceKind, id string) error {
	if f.reconcileErr != nil {
		return f.reconcileErr
	}
	f.reconciled = append(f.reconciled, id)
	for _, e := range f.entries {
		if e.InternalID == id {
			e.Reconciled = true
		}
	}
	return nil
}

func (f *fakeLedger) ListCategories(context.Context) ([]model.Category, error) {
	return []model.Category{{Code: "CAT-SALES", Name: "Sales"}}, nil
}

func (f *fakeLedger) ListCounterparties(context.Context) ([]model.Counterparty, error) {
	return nil, nil
}

// staticLearning never predicts; runs fall back to rules and review.
type staticLearning struct{ retrained int }

func (s *staticLearning) Add(model.LearningExample) error { return nil }

func (s *staticLearning) Predict(string, float64) (string, float64) { return "", 0 }

func (s *staticLearning) SuggestSimilar(string, int) []classifier.Similar { return nil }
func (s *staticLearning) RetrainNow() error {
	s.retrained++
	return nil
}

func writeStatement(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extrato.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func ledgerEntry(id string, kind model.SourceKind, amount float64, day int, doc string) *model.LedgerEntry {
	return &model.LedgerEntry{
		InternalID:     id,
		SourceKind:     kind,
		Amount:         amount,
		Date:           time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		DocumentNumber: model.TruncateDocumentNumber(doc),
	}
}

func newTestEngine(ledger *fakeLedger, learning LearningStore, repo storage.Repository) *Engine {
	return NewEngine(ledger, learning, repo, nil, DefaultEngineConfig(), testLogger())
}

func TestRun_EndToEnd(t *testing.T) {
	// tx-001 matches by document number, tx-002 hits the venda keyword
	// rule, tx-003 has no signal and is queued for review.
	path := writeStatement(t, `external_id,date,amount,memo,kind
tx-001,2025-03-10,-62.05,PAG FORNECEDOR ABC,debit
tx-002,2025-03-12,430.17,VENDA CARTAO,credit
tx-003,2025-03-14,-77.13,COMPRA AVULSA XYZ,debit
`)
	ledger := &fakeLedger{entries: []*model.LedgerEntry{
		ledgerEntry("led-1", model.SourcePayable, -62.05, 10, "tx-001"),
	}}
	repo := storage.NewMockRepository()
	learning := &staticLearning{}
	engine := newTestEngine(ledger, learning, repo)

	report, err := engine.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Reconciled)
	assert.Equal(t, 1, report.AutoCreated)
	assert.Equal(t, 1, report.ManualReview)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, learning.retrained)

	// Ledger effects.
	assert.Equal(t, []string{"led-1"}, ledger.reconciled)
	require.Len(t, ledger.created, 1)
	assert.Equal(t, "CAT-SALES", ledger.created[0].Category)

	// Run record.
	run, err := repo.GetRun(report.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, storage.RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, "extrato.csv", run.StatementFile)

	// One outcome per transaction.
	outcomes, err := repo.ListOutcomes(report.RunID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, string(model.OutcomeReconciled), outcomes[0].Outcome)
	assert.Equal(t, 1, outcomes[0].MatchTier)
	assert.Equal(t, "led-1", outcomes[0].MatchedEntryID)
	assert.Equal(t, string(model.OutcomeAutoCreated), outcomes[1].Outcome)
	assert.Equal(t, string(model.OutcomeManualReview), outcomes[2].Outcome)

	// The unresolved transaction is queued.
	pending, err := repo.ListPendingReviews(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "tx-003", pending[0].ExternalID)
	assert.Equal(t, string(ReviewCategorize), pending[0].Kind)
}

func TestRun_ParseFailureAbortsBeforeAnything(t *testing.T) {
	path := writeStatement(t, "external_id,date,amount,memo\n")
	ledger := &fakeLedger{}
	repo := storage.NewMockRepository()
	engine := newTestEngine(ledger, &staticLearning{}, repo)

	_, err := engine.Run(context.Background(), path)

	var perr *statement.ParseError
	require.ErrorAs(t, err, &perr)
	assert.False(t, repo.StartRunCalled)
	assert.Empty(t, ledger.created)
}

func TestRun_ContinueOnError(t *testing.T) {
	// Entry creation fails, but a document match in the same statement
	// still goes through.
	path := writeStatement(t, `external_id,date,amount,memo,kind
tx-001,2025-03-12,430.17,VENDA CARTAO,credit
tx-002,2025-03-10,-62.05,PAG FORNECEDOR ABC,debit
`)
	ledger := &fakeLedger{
		entries: []*model.LedgerEntry{
			ledgerEntry("led-1", model.SourcePayable, -62.05, 10, "tx-002"),
		},
		createErr: errors.New("ledger down"),
	}
	repo := storage.NewMockRepository()
	engine := newTestEngine(ledger, &staticLearning{}, repo)

	report, err := engine.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Reconciled)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "tx-001", report.Errors[0].ExternalID)
	assert.ErrorContains(t, report.Errors[0].Err, "ledger down")

	run, err := repo.GetRun(report.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, storage.RunStatusCompletedWithErrors, run.Status)
	assert.Equal(t, 1, run.Errored)
}

func TestRun_SecondRunDoesNotRemark(t *testing.T) {
	// After the first run reconciles the entry, a rerun over the
	// updated ledger matches it again but issues no second mutation.
	content := `external_id,date,amount,memo,kind
tx-001,2025-03-10,-62.05,PAG FORNECEDOR ABC,debit
`
	path := writeStatement(t, content)
	ledger := &fakeLedger{entries: []*model.LedgerEntry{
		ledgerEntry("led-1", model.SourcePayable, -62.05, 10, "tx-001"),
	}}
	repo := storage.NewMockRepository()
	engine := newTestEngine(ledger, &staticLearning{}, repo)

	first, err := engine.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Reconciled)
	require.Len(t, ledger.reconciled, 1)

	second, err := engine.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Reconciled)
	assert.Zero(t, second.AutoCreated)

	// Still exactly one mark across both runs.
	assert.Len(t, ledger.reconciled, 1)
	assert.Empty(t, ledger.created)
}

func TestRun_DryRunRecordsButDoesNotMutate(t *testing.T) {
	path := writeStatement(t, `external_id,date,amount,memo,kind
tx-001,2025-03-10,-62.05,PAG FORNECEDOR ABC,debit
tx-002,2025-03-12,430.17,VENDA CARTAO,credit
`)
	ledger := &fakeLedger{entries: []*model.LedgerEntry{
		ledgerEntry("led-1", model.SourcePayable, -62.05, 10, "tx-001"),
	}}
	repo := storage.NewMockRepository()
	engine := newTestEngine(ledger, &staticLearning{}, repo)

	report, err := engine.RunWithOptions(context.Background(), path, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Reconciled)
	assert.Equal(t, 1, report.AutoCreated)
	assert.Empty(t, ledger.reconciled)
	assert.Empty(t, ledger.created)

	run, err := repo.GetRun(report.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.True(t, run.DryRun)
}
