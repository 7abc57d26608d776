// Package classifier predicts accounting categories for bank transactions
// that matched nothing in the ledger.
//
// Two independent signals are produced: a naive-Bayes model over TF-IDF
// term weights (trained from the append-only learning store), and a
// token-overlap retrieval over the same history. Keyword rules and coarse
// amount heuristics back both up when neither signal clears the bar.
package classifier

import (
	"math"
	"sync"

	"github.com/jbrukh/bayesian"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// MinTrainingExamples is the floor below which the model refuses to
// predict. With fewer labeled examples the posterior is noise.
const MinTrainingExamples = 5

// Model is the trained text classifier. Zero value is usable and
// untrained; Train re-derives it from scratch each time.
type Model struct {
	mu      sync.RWMutex
	classes []bayesian.Class
	cl      *bayesian.Classifier
	// single is set instead of cl when every example shares one
	// category; the bayesian classifier needs at least two classes.
	single  string
	trained bool
}

// NewModel returns an untrained model.
func NewModel() *Model {
	return &Model{}
}

// Train re-derives the model from all examples. Below the floor the model
// becomes (or stays) untrained; that is not an error.
func (m *Model) Train(examples []model.LearningExample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cl = nil
	m.classes = nil
	m.single = ""
	m.trained = false

	labeled := make([]model.LearningExample, 0, len(examples))
	categories := make(map[string]bool)
	for _, ex := range examples {
		if ex.Category == "" {
			continue
		}
		labeled = append(labeled, ex)
		categories[ex.Category] = true
	}

	if len(labeled) < MinTrainingExamples {
		return
	}

	if len(categories) == 1 {
		for cat := range categories {
			m.single = cat
		}
		m.trained = true
		return
	}

	classes := make([]bayesian.Class, 0, len(categories))
	for cat := range categories {
		classes = append(classes, bayesian.Class(cat))
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, ex := range labeled {
		cl.Learn(features(ex.NormalizedDescription, ex.Amount), bayesian.Class(ex.Category))
	}
	cl.ConvertTermsFreqToTfIdf()

	m.classes = classes
	m.cl = cl
	m.trained = true
}

// Trained reports whether the model can predict.
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trained
}

// Predict returns the most likely category and its posterior probability,
// or ("", 0) when the model is untrained. Confidence is the maximum
// posterior class probability.
func (m *Model) Predict(description string, amount float64) (string, float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return "", 0
	}
	if m.single != "" {
		return m.single, 1.0
	}

	scores, inx, _ := m.cl.ProbScores(features(description, amount))
	if inx < 0 || inx >= len(m.classes) {
		return "", 0
	}
	return string(m.classes[inx]), scores[inx]
}

// features builds the term vector: description tokens plus a bucketed
// amount term, so "tarifa 12.90" and "tarifa 8.50" land near each other.
func features(description string, amount float64) []string {
	toks := model.Tokens(model.NormalizeDescription(description), 0)
	return append(toks, amountBucket(amount))
}

func amountBucket(amount float64) string {
	a := math.Abs(amount)
	switch {
	case a < 20:
		return "amt-micro"
	case a < 100:
		return "amt-small"
	case a < 500:
		return "amt-medium"
	case a < 2000:
		return "amt-large"
	default:
		return "amt-xlarge"
	}
}
