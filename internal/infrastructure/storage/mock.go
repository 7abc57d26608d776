package storage

import (
	"fmt"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	examples    []model.LearningExample
	runs        map[string]*ReconRun
	outcomes    []TransactionOutcome
	reviews     map[int64]*ReviewRecord
	nextExample int64
	nextOutcome int64
	nextReview  int64

	// Hooks for test assertions
	AppendExampleCalled bool
	LastAppended        *model.LearningExample
	StartRunCalled      bool
	CompleteRunCalled   bool
	SaveOutcomeCalled   bool
	SaveReviewCalled    bool

	// Error injection for testing error paths
	AppendExampleErr error
	ListExamplesErr  error
	StartRunErr      error
	CompleteRunErr   error
	SaveOutcomeErr   error
	SaveReviewErr    error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:        make(map[string]*ReconRun),
		reviews:     make(map[int64]*ReviewRecord),
		nextExample: 1,
		nextOutcome: 1,
		nextReview:  1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// AppendExample appends to the in-memory history
func (m *MockRepository) AppendExample(example *model.LearningExample) error {
	m.AppendExampleCalled = true
	m.LastAppended = example
	if m.AppendExampleErr != nil {
		return m.AppendExampleErr
	}
	example.ID = m.nextExample
	m.nextExample++
	if example.CreatedAt.IsZero() {
		example.CreatedAt = time.Now().UTC()
	}
	m.examples = append(m.examples, *example)
	return nil
}

// ListExamples returns a copy of the history
func (m *MockRepository) ListExamples() ([]model.LearningExample, error) {
	if m.ListExamplesErr != nil {
		return nil, m.ListExamplesErr
	}
	out := make([]model.LearningExample, len(m.examples))
	copy(out, m.examples)
	return out, nil
}

// GetLearningStats aggregates the in-memory history
func (m *MockRepository) GetLearningStats() (*LearningStats, error) {
	stats := &LearningStats{Total: len(m.examples)}
	for i := range m.examples {
		if m.examples[i].Category != "" {
			stats.Categorized++
		}
		if m.examples[i].Counterparty != "" {
			stats.WithCounterparty++
		}
	}
	return stats, nil
}

// StartRun stores a run in the running state
func (m *MockRepository) StartRun(run *ReconRun) error {
	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return m.StartRunErr
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt == "" {
		run.StartedAt = time.Now().UTC().Format(time.RFC3339)
	}
	copied := *run
	m.runs[run.ID] = &copied
	return nil
}

// CompleteRun overwrites the stored run with final counts
func (m *MockRepository) CompleteRun(run *ReconRun) error {
	m.CompleteRunCalled = true
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	if _, ok := m.runs[run.ID]; !ok {
		return fmt.Errorf("run %s not started", run.ID)
	}
	if run.CompletedAt == "" {
		run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	}
	copied := *run
	m.runs[run.ID] = &copied
	return nil
}

// GetRun retrieves a run, nil when absent
func (m *MockRepository) GetRun(id string) (*ReconRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

// ListRuns returns all stored runs
func (m *MockRepository) ListRuns(limit int) ([]ReconRun, error) {
	var runs []ReconRun
	for _, run := range m.runs {
		runs = append(runs, *run)
		if limit > 0 && len(runs) == limit {
			break
		}
	}
	return runs, nil
}

// SaveOutcome appends an outcome
func (m *MockRepository) SaveOutcome(outcome *TransactionOutcome) error {
	m.SaveOutcomeCalled = true
	if m.SaveOutcomeErr != nil {
		return m.SaveOutcomeErr
	}
	outcome.ID = m.nextOutcome
	m.nextOutcome++
	m.outcomes = append(m.outcomes, *outcome)
	return nil
}

// ListOutcomes filters outcomes by run
func (m *MockRepository) ListOutcomes(runID string) ([]TransactionOutcome, error) {
	var out []TransactionOutcome
	for _, o := range m.outcomes {
		if o.RunID == runID {
			out = append(out, o)
		}
	}
	return out, nil
}

// SaveReviewRequest enqueues a pending review
func (m *MockRepository) SaveReviewRequest(req *ReviewRecord) error {
	m.SaveReviewCalled = true
	if m.SaveReviewErr != nil {
		return m.SaveReviewErr
	}
	req.ID = m.nextReview
	m.nextReview++
	if req.Status == "" {
		req.Status = ReviewStatusPending
	}
	if req.CreatedAt == "" {
		req.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	copied := *req
	m.reviews[req.ID] = &copied
	return nil
}

// ListPendingReviews returns pending reviews in ID order
func (m *MockRepository) ListPendingReviews(limit int) ([]ReviewRecord, error) {
	var out []ReviewRecord
	for id := int64(1); id < m.nextReview; id++ {
		r, ok := m.reviews[id]
		if !ok || r.Status != ReviewStatusPending {
			continue
		}
		out = append(out, *r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetReview retrieves a review, nil when absent
func (m *MockRepository) GetReview(id int64) (*ReviewRecord, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

// ResolveReview closes a pending review
func (m *MockRepository) ResolveReview(id int64, status, decisionJSON string) error {
	r, ok := m.reviews[id]
	if !ok || r.Status != ReviewStatusPending {
		return fmt.Errorf("review %d is not pending", id)
	}
	r.Status = status
	r.DecisionJSON = decisionJSON
	r.ResolvedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}
