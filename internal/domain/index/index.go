// Package index builds and holds the period-scoped ledger index used by
// the matcher. An index belongs to exactly one reconciliation run: the
// matcher consumes entries out of it as matches are made, so it must never
// be shared across runs.
package index

import (
	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// PeriodIndex holds all ledger entries inside a run's window, indexed two
// ways: by truncated document number (tier 1) and by "amount|date" key
// (tiers 2 and 3, the consumable pool).
type PeriodIndex struct {
	window model.Period

	byDocumentNumber map[string]*model.LedgerEntry
	byValueDate      map[string][]*model.LedgerEntry

	poolSize int
}

// New creates an empty index for the given window.
func New(window model.Period) *PeriodIndex {
	return &PeriodIndex{
		window:           window,
		byDocumentNumber: make(map[string]*model.LedgerEntry),
		byValueDate:      make(map[string][]*model.LedgerEntry),
	}
}

// Window is the date range this index covers.
func (idx *PeriodIndex) Window() model.Period { return idx.window }

// Add indexes one entry. Opening-balance pseudo-entries and zero-valued
// entries are rejected by the builder before they get here; Add guards
// anyway so a hand-built index in tests behaves the same.
func (idx *PeriodIndex) Add(entry *model.LedgerEntry) {
	if entry.OpeningBalance || entry.Amount == 0 {
		return
	}

	if entry.DocumentNumber != "" {
		idx.byDocumentNumber[entry.DocumentNumber] = entry
	}

	key := model.ValueDateKey(entry.Amount, entry.Date)
	idx.byValueDate[key] = append(idx.byValueDate[key], entry)
	idx.poolSize++
}

// SetDocumentKey indexes an entry under an explicit document-number key.
// Used for synthetic fingerprint keys when the detail backfill failed.
func (idx *PeriodIndex) SetDocumentKey(key string, entry *model.LedgerEntry) {
	if key == "" {
		return
	}
	idx.byDocumentNumber[key] = entry
}

// LookupDocument returns the entry filed under a truncated document
// number, or nil. Document keys are unique, which makes tier-1 matches
// naturally exclusive within a run.
func (idx *PeriodIndex) LookupDocument(doc string) *model.LedgerEntry {
	if doc == "" {
		return nil
	}
	return idx.byDocumentNumber[doc]
}

// Pool returns every entry still available for value-based matching.
// Callers must treat the slice as read-only.
func (idx *PeriodIndex) Pool() []*model.LedgerEntry {
	out := make([]*model.LedgerEntry, 0, idx.poolSize)
	for _, bucket := range idx.byValueDate {
		out = append(out, bucket...)
	}
	return out
}

// PoolSize is the number of entries still available to tiers 2 and 3.
func (idx *PeriodIndex) PoolSize() int { return idx.poolSize }

// DocumentCount is the number of document-number keys.
func (idx *PeriodIndex) DocumentCount() int { return len(idx.byDocumentNumber) }

// Consume removes an entry from the value+date pool so no later
// transaction in the same run can claim it again.
func (idx *PeriodIndex) Consume(entry *model.LedgerEntry) {
	key := model.ValueDateKey(entry.Amount, entry.Date)
	bucket := idx.byValueDate[key]
	for i, e := range bucket {
		if e == entry {
			bucket = append(bucket[:i], bucket[i+1:]...)
			idx.poolSize--
			break
		}
	}
	if len(bucket) == 0 {
		delete(idx.byValueDate, key)
	} else {
		idx.byValueDate[key] = bucket
	}
}
