// Package matcher finds ledger entries for bank statement transactions.
//
// Three tiers are evaluated in strict priority order, stopping at the
// first hit:
//
//	Tier 1 — document number (exact key on the truncated id)
//	Tier 2 — value + date within tolerance
//	Tier 3 — value (tight tolerance) + description similarity
//
// A match at any tier consumes the ledger entry out of the index pool, so
// within one run an entry can serve at most one transaction. Matching is
// greedy in statement order; the first transaction to reach a candidate
// claims it. That is not a globally optimal assignment and is a known,
// accepted limitation.
package matcher

import (
	"math"
	"strings"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/index"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// Matcher evaluates the tiers against a run's period index.
type Matcher struct {
	config Config
}

// NewMatcher creates a matcher with the given tolerances.
func NewMatcher(config Config) *Matcher {
	return &Matcher{config: config}
}

// FindMatch returns the best candidate for tx, or nil when all tiers
// miss. The winning entry is consumed from the pool regardless of tier,
// so a document-matched entry cannot be claimed again by value+date.
func (m *Matcher) FindMatch(tx model.BankTransaction, idx *index.PeriodIndex) *model.MatchCandidate {
	if c := m.matchDocument(tx, idx); c != nil {
		idx.Consume(c.Entry)
		return c
	}
	if c := m.matchValueDate(tx, idx); c != nil {
		idx.Consume(c.Entry)
		return c
	}
	if c := m.matchValueDescription(tx, idx); c != nil {
		idx.Consume(c.Entry)
		return c
	}
	return nil
}

// matchDocument is tier 1: exact lookup of the truncated external id.
func (m *Matcher) matchDocument(tx model.BankTransaction, idx *index.PeriodIndex) *model.MatchCandidate {
	doc := model.TruncateDocumentNumber(tx.ExternalID)
	entry := idx.LookupDocument(doc)
	if entry == nil {
		return nil
	}
	return &model.MatchCandidate{
		Entry:      entry,
		Tier:       1,
		Confidence: m.config.DocumentConfidence,
	}
}

// matchValueDate is tier 2: amount within max(min, ratio*|amount|) and
// date within the day tolerance. Among qualifying entries the closest
// date wins, ties broken by amount delta.
func (m *Matcher) matchValueDate(tx model.BankTransaction, idx *index.PeriodIndex) *model.MatchCandidate {
	txAmount := math.Abs(tx.Amount)
	tolerance := math.Max(m.config.ValueDateTolMin, m.config.ValueDateTolRatio*txAmount)

	var best *model.LedgerEntry
	bestDays := math.MaxFloat64
	bestDelta := math.MaxFloat64

	for _, entry := range idx.Pool() {
		if !signCompatible(tx, entry) {
			continue
		}

		delta := math.Abs(txAmount - math.Abs(entry.Amount))
		if delta > tolerance+epsilon {
			continue
		}

		days := math.Abs(entry.Date.Sub(tx.Date).Hours() / 24)
		if days > float64(m.config.DateToleranceDays) {
			continue
		}

		if days < bestDays || (days == bestDays && delta < bestDelta) {
			best = entry
			bestDays = days
			bestDelta = delta
		}
	}

	if best == nil {
		return nil
	}
	return &model.MatchCandidate{
		Entry:      best,
		Tier:       2,
		Confidence: m.config.ValueDateConfidence,
	}
}

// matchValueDescription is tier 3: tight amount tolerance plus textual
// similarity between the statement memo and the entry's description or
// counterparty.
func (m *Matcher) matchValueDescription(tx model.BankTransaction, idx *index.PeriodIndex) *model.MatchCandidate {
	txAmount := math.Abs(tx.Amount)

	for _, entry := range idx.Pool() {
		if !signCompatible(tx, entry) {
			continue
		}
		if math.Abs(txAmount-math.Abs(entry.Amount)) > m.config.ValueDescTolerance+epsilon {
			continue
		}
		if m.descriptionsSimilar(tx.NormalizedDescription, entry) {
			return &model.MatchCandidate{
				Entry:      entry,
				Tier:       3,
				Confidence: m.config.ValueDescConfidence,
			}
		}
	}
	return nil
}

// descriptionsSimilar reports a non-empty intersection of long tokens, or
// substring containment of one description in the other.
func (m *Matcher) descriptionsSimilar(txDesc string, entry *model.LedgerEntry) bool {
	entryDesc := model.NormalizeDescription(entry.Description + " " + entry.Counterparty)
	if txDesc == "" || entryDesc == "" {
		return false
	}

	entryTokens := make(map[string]bool)
	for _, tok := range model.Tokens(entryDesc, m.config.MinTokenLen) {
		entryTokens[tok] = true
	}
	for _, tok := range model.Tokens(txDesc, m.config.MinTokenLen) {
		if entryTokens[tok] {
			return true
		}
	}

	if len(txDesc) >= m.config.MinSubstringLen && strings.Contains(entryDesc, txDesc) {
		return true
	}
	if len(entryDesc) >= m.config.MinSubstringLen && strings.Contains(txDesc, entryDesc) {
		return true
	}
	return false
}

// signCompatible keeps debits away from inflow entries and credits away
// from outflow entries.
func signCompatible(tx model.BankTransaction, entry *model.LedgerEntry) bool {
	switch entry.SourceKind {
	case model.SourcePayable:
		return tx.Kind == model.KindDebit
	case model.SourceReceivable:
		return tx.Kind == model.KindCredit
	default:
		if entry.Amount < 0 {
			return tx.Kind == model.KindDebit
		}
		return tx.Kind == model.KindCredit
	}
}

// epsilon absorbs float64 representation error at tolerance boundaries.
const epsilon = 0.0000001
