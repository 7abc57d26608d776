package recon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/classifier"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/index"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/matcher"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLedgerWriter records mutations.
type fakeLedgerWriter struct {
	created      []model.NewEntry
	reconciled   []string
	createErr    error
	reconcileErr error
}

func (f *fakeLedgerWriter) CreateEntry(_ context.Context, entry model.NewEntry) (model.LedgerEntry, error) {
	if f.createErr != nil {
		return model.LedgerEntry{}, f.createErr
	}
	f.created = append(f.created, entry)
	return model.LedgerEntry{
		InternalID:  "created-1",
		SourceKind:  model.SourceCashAccount,
		Amount:      entry.Amount,
		Date:        entry.Date,
		Description: entry.Description,
		Category:    entry.Category,
	}, nil
}

func (f *fakeLedgerWriter) MarkReconciled(_ context.Context, _ model.SourceKind, id string) error {
	if f.reconcileErr != nil {
		return f.reconcileErr
	}
	f.reconciled = append(f.reconciled, id)
	return nil
}

// fakeLearning scripts the classifier signals.
type fakeLearning struct {
	prediction string
	confidence float64
	similar    []classifier.Similar
	added      []model.LearningExample
	addErr     error
}

func (f *fakeLearning) Add(ex model.LearningExample) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, ex)
	return nil
}

func (f *fakeLearning) Predict(string, float64) (string, float64) {
	return f.prediction, f.confidence
}

func (f *fakeLearning) SuggestSimilar(string, int) []classifier.Similar {
	return f.similar
}

// scriptedReviewer replays canned decisions and records requests.
type scriptedReviewer struct {
	decisions []ReviewDecision
	err       error
	requests  []ReviewRequest
}

func (r *scriptedReviewer) Review(_ context.Context, req ReviewRequest) (ReviewDecision, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return ReviewDecision{}, r.err
	}
	if len(r.decisions) == 0 {
		return ReviewDecision{Skip: true}, nil
	}
	d := r.decisions[0]
	r.decisions = r.decisions[1:]
	return d, nil
}

func txAt(id string, amount float64, day int, memo string) model.BankTransaction {
	kind := model.KindCredit
	if amount < 0 {
		kind = model.KindDebit
	}
	return model.BankTransaction{
		ExternalID:            id,
		Date:                  time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		Amount:                amount,
		RawDescription:        memo,
		NormalizedDescription: model.NormalizeDescription(memo),
		Kind:                  kind,
	}
}

func indexWith(entries ...*model.LedgerEntry) *index.PeriodIndex {
	idx := index.New(model.Period{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	for _, e := range entries {
		idx.Add(e)
	}
	return idx
}

func newTestController(learning Learning, writer LedgerWriter, reviewer Reviewer, opts Options) *Controller {
	return NewController(
		matcher.NewMatcher(matcher.DefaultConfig()),
		learning,
		writer,
		reviewer,
		nil,
		opts,
		testLogger(),
	)
}

func TestProcess_Tier1Reconciles(t *testing.T) {
	entry := &model.LedgerEntry{
		InternalID:     "led-1",
		SourceKind:     model.SourcePayable,
		Amount:         -62.05,
		Date:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DocumentNumber: model.TruncateDocumentNumber("tx-100"),
	}
	writer := &fakeLedgerWriter{}
	c := newTestController(&fakeLearning{}, writer, nil, Options{})

	d, err := c.Process(context.Background(), txAt("tx-100", -62.05, 10, "pagamento"), indexWith(entry))
	require.NoError(t, err)
	assert.Equal(t, StateReconciled, d.State)
	assert.Equal(t, 1, d.Candidate.Tier)
	assert.Equal(t, []string{"led-1"}, writer.reconciled)
	assert.True(t, entry.Reconciled)
}

func TestProcess_AlreadyReconciledNotMarkedTwice(t *testing.T) {
	// A prior run marked the entry; this run must match without a
	// second mutation.
	entry := &model.LedgerEntry{
		InternalID:     "led-1",
		SourceKind:     model.SourcePayable,
		Amount:         -62.05,
		Date:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DocumentNumber: model.TruncateDocumentNumber("tx-100"),
		Reconciled:     true,
	}
	writer := &fakeLedgerWriter{}
	c := newTestController(&fakeLearning{}, writer, nil, Options{})

	d, err := c.Process(context.Background(), txAt("tx-100", -62.05, 10, "pagamento"), indexWith(entry))
	require.NoError(t, err)
	assert.Equal(t, StateReconciled, d.State)
	assert.Empty(t, writer.reconciled)
}

func TestProcess_Tier2ConfirmedReconcilesAndLearns(t *testing.T) {
	entry := &model.LedgerEntry{
		InternalID: "led-2",
		SourceKind: model.SourcePayable,
		Amount:     -62.06,
		Date:       time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
		Category:   "Suppliers",
	}
	writer := &fakeLedgerWriter{}
	learning := &fakeLearning{}
	reviewer := &scriptedReviewer{decisions: []ReviewDecision{{Confirmed: true}}}
	c := newTestController(learning, writer, reviewer, Options{})

	d, err := c.Process(context.Background(), txAt("tx-2", -62.05, 10, "pag fornecedor"), indexWith(entry))
	require.NoError(t, err)
	assert.Equal(t, StateReconciled, d.State)
	assert.Equal(t, 2, d.Candidate.Tier)

	require.Len(t, reviewer.requests, 1)
	assert.Equal(t, ReviewConfirmMatch, reviewer.requests[0].Kind)
	assert.Equal(t, []string{"led-2"}, writer.reconciled)

	require.Len(t, learning.added, 1)
	assert.Equal(t, "Suppliers", learning.added[0].Category)
}

func TestProcess_Tier2RejectedFallsThroughToClassification(t *testing.T) {
	entry := &model.LedgerEntry{
		InternalID: "led-2",
		SourceKind: model.SourcePayable,
		Amount:     -62.06,
		Date:       time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
	}
	writer := &fakeLedgerWriter{}
	learning := &fakeLearning{prediction: "Suppliers", confidence: 0.9}
	reviewer := &scriptedReviewer{decisions: []ReviewDecision{{Confirmed: false}}}
	c := newTestController(learning, writer, reviewer, Options{})

	d, err := c.Process(context.Background(), txAt("tx-2", -62.05, 10, "pag fornecedor"), indexWith(entry))
	require.NoError(t, err)
	assert.Equal(t, StateAutoCreated, d.State)
	assert.Equal(t, "Suppliers", d.Category)
	assert.Empty(t, writer.reconciled)
	require.Len(t, writer.created, 1)
}

func TestProcess_Tier2TimeoutDegradesToManualReview(t *testing.T) {
	entry := &model.LedgerEntry{
		InternalID: "led-2",
		SourceKind: model.SourcePayable,
		Amount:     -62.06,
		Date:       time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
	}
	writer := &fakeLedgerWriter{}
	reviewer := &scriptedReviewer{err: ErrReviewTimeout}
	c := newTestController(&fakeLearning{}, writer, reviewer, Options{})

	d, err := c.Process(context.Background(), txAt("tx-2", -62.05, 10, "pag fornecedor"), indexWith(entry))
	require.NoError(t, err)
	assert.Equal(t, StateManualReview, d.State)
	assert.Empty(t, writer.reconciled)
	assert.Empty(t, writer.created)
}

func TestClassify_ModelAboveThreshold(t *testing.T) {
	writer := &fakeLedgerWriter{}
	learning := &fakeLearning{prediction: "Sales", confidence: 0.72}
	c := newTestController(learning, writer, nil, Options{})

	d, err := c.Process(context.Background(), txAt("tx-5", 310.00, 12, "pix recebido loja cafe"), indexWith())
	require.NoError(t, err)
	assert.Equal(t, StateAutoCreated, d.State)
	assert.Equal(t, "Sales", d.Category)
	assert.InDelta(t, 0.72, d.Confidence, 1e-9)

	require.Len(t, writer.created, 1)
	assert.Equal(t, "Sales", writer.created[0].Category)
	assert.Equal(t, "tx-5", writer.created[0].ExternalID)

	require.Len(t, learning.added, 1)
	assert.Equal(t, "Sales", learning.added[0].Category)
}

func TestClassify_ModelBelowThresholdUsesSimilar(t *testing.T) {
	writer := &fakeLedgerWriter{}
	learning := &fakeLearning{
		prediction: "Sales",
		confidence: 0.4,
		similar: []classifier.Similar{
			{Category: "Transport", Counterparty: "Posto X", Frequency: 4, Similarity: 0.9},
		},
	}
	c := newTestController(learning, writer, nil, Options{})

	d, err := c.Process(context.Background(), txAt("tx-6", -180.00, 12, "posto combustivel"), indexWith())
	require.NoError(t, err)
	assert.Equal(t, StateAutoCreated, d.State)
	assert.Equal(t, "Transport", d.Category)
	assert.InDelta(t, 0.85, d.Confidence, 1e-9)
	require.Len(t, writer.created, 1)
	assert.Equal(t, "Posto X", writer.created[0].Counterparty)
}

func TestClassify_SimilarAtFloorNotAccepted(t *testing.T) {
	// Similarity must be strictly above 0.8.
	writer := &fakeLedgerWriter{}
	learning := &fakeLearning{
		similar: []classifier.Similar{{Category: "Transport", Similarity: 0.8}},
	}
	reviewer := &scriptedReviewer{}
	c := newTestController(learning, writer, reviewer, Options{})

	d, err := c.Process(context.Background(), txAt("tx-6", -77.13, 12, "compra avulsa xyz"), indexWith())
	require.NoError(t, err)
	assert.Equal(t, StateManualReview, d.State)
}

func TestClassify_KeywordRule(t *testing.T) {
	writer := &fakeLedgerWriter{}
	c := newTestController(&fakeLearning{}, writer, nil, Options{})

	d, err := c.Process(context.Background(), txAt("tx-7", 430.17, 12, "VENDA CARTAO"), indexWith())
	require.NoError(t, err)
	assert.Equal(t, StateAutoCreated, d.State)
	assert.Equal(t, "Sales", d.Category)
	assert.InDelta(t, 0.8, d.Confidence, 1e-9)
}

func TestClassify_Heuristic(t *testing.T) {
	writer := &fakeLedgerWriter{}
	c := newTestController(&fakeLearning{}, writer, nil, Options{})

	d, err := c.Process(context.Background(), txAt("tx-8", -9.90, 12, "deb aut xyz"), indexWith())
	require.NoError(t, err)
	assert.Equal(t, StateAutoCreated, d.State)
	assert.Equal(t, "Bank Fees", d.Category)
	assert.InDelta(t, 0.75, d.Confidence, 1e-9)
}

func TestClassify_ReviewChoiceCreatesAndLearns(t *testing.T) {
	writer := &fakeLedgerWriter{}
	learning := &fakeLearning{}
	reviewer := &scriptedReviewer{decisions: []ReviewDecision{
		{Category: "Office", Counterparty: "Papelaria Z"},
	}}
	c := newTestController(learning, writer, reviewer, Options{})

	d, err := c.Process(context.Background(), txAt("tx-9", -77.13, 12, "compra avulsa xyz"), indexWith())
	require.NoError(t, err)
	assert.Equal(t, StateAutoCreated, d.State)
	assert.Equal(t, "Office", d.Category)
	assert.InDelta(t, 1.0, d.Confidence, 1e-9)

	require.Len(t, reviewer.requests, 1)
	assert.Equal(t, ReviewCategorize, reviewer.requests[0].Kind)
	require.Len(t, learning.added, 1)
	assert.Equal(t, "Office", learning.added[0].Category)
}

func TestClassify_ReviewSkipIsTerminalManualReview(t *testing.T) {
	writer := &fakeLedgerWriter{}
	reviewer := &scriptedReviewer{}
	c := newTestController(&fakeLearning{}, writer, reviewer, Options{})

	d, err := c.Process(context.Background(), txAt("tx-10", -77.13, 12, "compra avulsa xyz"), indexWith())
	require.NoError(t, err)
	assert.Equal(t, StateManualReview, d.State)
	assert.Empty(t, writer.created)
}

func TestClassify_CreateFailureSurfaces(t *testing.T) {
	writer := &fakeLedgerWriter{createErr: errors.New("ledger unavailable")}
	learning := &fakeLearning{prediction: "Sales", confidence: 0.9}
	c := newTestController(learning, writer, nil, Options{})

	_, err := c.Process(context.Background(), txAt("tx-11", 50, 12, "venda"), indexWith())
	require.Error(t, err)
	assert.ErrorContains(t, err, "ledger unavailable")
}

func TestDryRun_NoMutations(t *testing.T) {
	entry := &model.LedgerEntry{
		InternalID:     "led-1",
		SourceKind:     model.SourcePayable,
		Amount:         -62.05,
		Date:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DocumentNumber: model.TruncateDocumentNumber("tx-100"),
	}
	writer := &fakeLedgerWriter{}
	learning := &fakeLearning{prediction: "Sales", confidence: 0.9}
	c := newTestController(learning, writer, nil, Options{DryRun: true})
	idx := indexWith(entry)

	d, err := c.Process(context.Background(), txAt("tx-100", -62.05, 10, "pagamento"), idx)
	require.NoError(t, err)
	assert.Equal(t, StateReconciled, d.State)

	d, err = c.Process(context.Background(), txAt("tx-200", 50, 12, "venda"), idx)
	require.NoError(t, err)
	assert.Equal(t, StateAutoCreated, d.State)
	assert.Nil(t, d.Created)

	assert.Empty(t, writer.reconciled)
	assert.Empty(t, writer.created)
	assert.Empty(t, learning.added)
	assert.False(t, entry.Reconciled)
}

func TestCatalog_ResolvesNamesToCodes(t *testing.T) {
	catalog := NewCatalog(
		[]model.Category{{Code: "CAT-01", Name: "Sales"}},
		[]model.Counterparty{{Code: "CP-07", Name: "Cliente A"}},
	)
	writer := &fakeLedgerWriter{}
	learning := &fakeLearning{
		similar: []classifier.Similar{
			{Category: "Sales", Counterparty: "Cliente A", Frequency: 2, Similarity: 0.95},
		},
	}
	c := NewController(
		matcher.NewMatcher(matcher.DefaultConfig()),
		learning, writer, nil, catalog, Options{}, testLogger(),
	)

	_, err := c.Process(context.Background(), txAt("tx-12", 90, 12, "pix recebido"), indexWith())
	require.NoError(t, err)
	require.Len(t, writer.created, 1)
	assert.Equal(t, "CAT-01", writer.created[0].Category)
	assert.Equal(t, "CP-07", writer.created[0].Counterparty)
}

func TestTimeoutReviewer_SlowInnerSkips(t *testing.T) {
	slow := reviewerFunc(func(ctx context.Context, _ ReviewRequest) (ReviewDecision, error) {
		<-ctx.Done()
		return ReviewDecision{}, ctx.Err()
	})
	r := TimeoutReviewer{Inner: slow, Timeout: 10 * time.Millisecond}

	_, err := r.Review(context.Background(), ReviewRequest{})
	assert.ErrorIs(t, err, ErrReviewTimeout)
}

func TestTimeoutReviewer_FastInnerPassesThrough(t *testing.T) {
	fast := reviewerFunc(func(context.Context, ReviewRequest) (ReviewDecision, error) {
		return ReviewDecision{Category: "Sales"}, nil
	})
	r := TimeoutReviewer{Inner: fast, Timeout: time.Second}

	d, err := r.Review(context.Background(), ReviewRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Sales", d.Category)
}

type reviewerFunc func(ctx context.Context, req ReviewRequest) (ReviewDecision, error)

func (f reviewerFunc) Review(ctx context.Context, req ReviewRequest) (ReviewDecision, error) {
	return f(ctx, req)
}
