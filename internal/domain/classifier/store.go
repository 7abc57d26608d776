package classifier

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// ExampleRepository is the persisted, append-only learning history.
type ExampleRepository interface {
	AppendExample(example *model.LearningExample) error
	ListExamples() ([]model.LearningExample, error)
}

// StoreConfig controls when the model is re-derived.
type StoreConfig struct {
	// RetrainBatch is how many appended examples accumulate before an
	// automatic retrain. 1 retrains on every insert.
	RetrainBatch int
}

// DefaultStoreConfig retrains after every example.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{RetrainBatch: 1}
}

// Stats summarizes the learning history.
type Stats struct {
	Total            int  `json:"total"`
	Categorized      int  `json:"categorized"`
	WithCounterparty int  `json:"with_counterparty"`
	Trained          bool `json:"trained"`
}

// LearningStore couples the example repository with the trained model.
// All methods are safe for concurrent use; writes and retrains are
// serialized so a prediction never observes a half-trained model.
type LearningStore struct {
	mu       sync.Mutex
	repo     ExampleRepository
	model    *Model
	config   StoreConfig
	logger   *slog.Logger
	examples []model.LearningExample
	pending  int
	loaded   bool
}

// NewLearningStore builds a store over repo. The history is loaded
// lazily on first use, or eagerly via RetrainNow.
func NewLearningStore(repo ExampleRepository, config StoreConfig, logger *slog.Logger) *LearningStore {
	if config.RetrainBatch < 1 {
		config.RetrainBatch = 1
	}
	return &LearningStore{
		repo:   repo,
		model:  NewModel(),
		config: config,
		logger: logger.With("system", "classifier"),
	}
}

// Add persists one example and retrains once the batch threshold is
// reached. The append succeeds even when retraining is deferred.
func (s *LearningStore) Add(example model.LearningExample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}
	if err := s.repo.AppendExample(&example); err != nil {
		return fmt.Errorf("appending learning example: %w", err)
	}
	s.examples = append(s.examples, example)
	s.pending++

	if s.pending >= s.config.RetrainBatch {
		s.retrainLocked()
	}
	return nil
}

// RetrainNow reloads the full history from the repository and re-derives
// the model, regardless of the batch threshold.
func (s *LearningStore) RetrainNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	examples, err := s.repo.ListExamples()
	if err != nil {
		return fmt.Errorf("loading learning examples: %w", err)
	}
	s.examples = examples
	s.loaded = true
	s.retrainLocked()
	return nil
}

// Predict proxies to the trained model. ("", 0) means the model is
// below the training floor or has no opinion.
func (s *LearningStore) Predict(description string, amount float64) (string, float64) {
	if err := s.ensureLoaded(); err != nil {
		return "", 0
	}
	return s.model.Predict(description, amount)
}

// SuggestSimilar retrieves past labelings by description overlap.
func (s *LearningStore) SuggestSimilar(description string, limit int) []Similar {
	if err := s.ensureLoaded(); err != nil {
		return nil
	}
	s.mu.Lock()
	examples := s.examples
	s.mu.Unlock()
	return SuggestSimilar(examples, description, limit)
}

// Stats reports the size and readiness of the learning history.
func (s *LearningStore) Stats() Stats {
	_ = s.ensureLoaded()
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.examples), Trained: s.model.Trained()}
	for i := range s.examples {
		if s.examples[i].Category != "" {
			st.Categorized++
		}
		if s.examples[i].Counterparty != "" {
			st.WithCounterparty++
		}
	}
	return st
}

func (s *LearningStore) ensureLoaded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoadedLocked()
}

func (s *LearningStore) ensureLoadedLocked() error {
	if s.loaded {
		return nil
	}
	examples, err := s.repo.ListExamples()
	if err != nil {
		s.logger.Warn("failed to load learning examples", "error", err)
		return fmt.Errorf("loading learning examples: %w", err)
	}
	s.examples = examples
	s.loaded = true
	s.retrainLocked()
	return nil
}

func (s *LearningStore) retrainLocked() {
	s.model.Train(s.examples)
	s.pending = 0
	s.logger.Debug("classifier retrained",
		"examples", len(s.examples),
		"trained", s.model.Trained(),
	)
}
