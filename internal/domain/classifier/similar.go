package classifier

import (
	"sort"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// minSimilarTokenLen drops tokens of this length or shorter before
// overlap scoring, the same floor the matcher's description tier uses.
const minSimilarTokenLen = 3

// Similar is one (category, counterparty) pair retrieved from the
// learning history by description overlap.
type Similar struct {
	Category     string
	Counterparty string
	// Frequency is how many historical examples with this labeling
	// overlapped the query.
	Frequency int
	// Similarity is the best token-overlap score among them, in [0, 1].
	Similarity float64
}

// SuggestSimilar retrieves up to limit labelings of past transactions
// whose descriptions share tokens with the query. Results are ordered by
// frequency, then similarity. An empty slice means nothing overlapped.
func SuggestSimilar(examples []model.LearningExample, description string, limit int) []Similar {
	query := tokenSet(model.NormalizeDescription(description))
	if len(query) == 0 {
		return nil
	}

	type key struct{ category, counterparty string }
	acc := make(map[key]*Similar)

	for i := range examples {
		ex := &examples[i]
		if ex.Category == "" {
			continue
		}
		sim := overlapScore(query, tokenSet(ex.NormalizedDescription))
		if sim <= 0 {
			continue
		}
		k := key{ex.Category, ex.Counterparty}
		s, ok := acc[k]
		if !ok {
			s = &Similar{Category: ex.Category, Counterparty: ex.Counterparty}
			acc[k] = s
		}
		s.Frequency++
		if sim > s.Similarity {
			s.Similarity = sim
		}
	}

	out := make([]Similar, 0, len(acc))
	for _, s := range acc {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Similarity > out[j].Similarity
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func tokenSet(normalized string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range model.Tokens(normalized, minSimilarTokenLen) {
		set[t] = true
	}
	return set
}

// overlapScore is shared / min(len(a), len(b)), so a short query fully
// contained in a long historical memo still scores 1.0.
func overlapScore(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if b[t] {
			shared++
		}
	}
	min := len(a)
	if len(b) < min {
		min = len(b)
	}
	return float64(shared) / float64(min)
}
