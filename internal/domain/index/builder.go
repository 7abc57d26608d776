package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// LoadError means a ledger list query exhausted its retries while the
// index was being built. Nothing has been mutated at that point, so
// aborting the run is safe.
type LoadError struct {
	Kind model.SourceKind
	Page int
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("index load: %s page %d: %v", e.Kind, e.Page, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DetailFetchError is non-fatal: the entry stays indexable under a
// synthetic fingerprint key instead of its document number.
type DetailFetchError struct {
	ID  string
	Err error
}

func (e *DetailFetchError) Error() string {
	return fmt.Sprintf("detail fetch %s: %v", e.ID, e.Err)
}

func (e *DetailFetchError) Unwrap() error { return e.Err }

// LedgerReader is the slice of the ledger API the builder needs.
type LedgerReader interface {
	ListEntries(ctx context.Context, kind model.SourceKind, from, to time.Time, page int) (entries []model.LedgerEntry, lastPage bool, err error)
	FetchEntryDetail(ctx context.Context, kind model.SourceKind, id string) (model.LedgerEntry, error)
}

// BuilderConfig bounds the pagination loops.
type BuilderConfig struct {
	// MaxPages caps the pages fetched per source kind so a misbehaving
	// ledger endpoint cannot drag a run into an unbounded loop.
	MaxPages int
}

// DefaultBuilderConfig returns the standard pagination bounds.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{MaxPages: 15}
}

// Builder loads ledger entries for a run window and produces a PeriodIndex.
type Builder struct {
	reader LedgerReader
	config BuilderConfig
	logger *slog.Logger
}

// NewBuilder creates an index builder.
func NewBuilder(reader LedgerReader, config BuilderConfig, logger *slog.Logger) *Builder {
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultBuilderConfig().MaxPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		reader: reader,
		config: config,
		logger: logger.With("system", "index"),
	}
}

var sourceKinds = []model.SourceKind{
	model.SourceCashAccount,
	model.SourcePayable,
	model.SourceReceivable,
}

// Build fetches all three source kinds for the window, filters
// pseudo-entries, and indexes what remains. Cash movements that arrive
// without a document number get a second, lazy detail lookup; if that
// fails they are filed under a synthetic fingerprint key rather than
// dropped.
func (b *Builder) Build(ctx context.Context, window model.Period) (*PeriodIndex, error) {
	idx := New(window)

	var missingDoc []*model.LedgerEntry

	for _, kind := range sourceKinds {
		fetched, skipped, err := b.loadKind(ctx, idx, kind, window, &missingDoc)
		if err != nil {
			return nil, err
		}
		b.logger.Debug("indexed ledger source",
			"kind", string(kind),
			"fetched", fetched,
			"skipped", skipped,
		)
	}

	b.backfillDocumentNumbers(ctx, idx, missingDoc)

	b.logger.Info("period index built",
		"window", window.String(),
		"documents", idx.DocumentCount(),
		"pool", idx.PoolSize(),
	)

	return idx, nil
}

func (b *Builder) loadKind(ctx context.Context, idx *PeriodIndex, kind model.SourceKind, window model.Period, missingDoc *[]*model.LedgerEntry) (fetched, skipped int, err error) {
	for page := 1; page <= b.config.MaxPages; page++ {
		entries, lastPage, err := b.reader.ListEntries(ctx, kind, window.Start, window.End, page)
		if err != nil {
			// Transient errors have already been retried by the client;
			// at this point the page is unrecoverable.
			return fetched, skipped, &LoadError{Kind: kind, Page: page, Err: err}
		}

		for i := range entries {
			entry := &entries[i]
			fetched++
			if entry.OpeningBalance || entry.Amount == 0 {
				skipped++
				continue
			}
			idx.Add(entry)
			if kind == model.SourceCashAccount && entry.DocumentNumber == "" {
				*missingDoc = append(*missingDoc, entry)
			}
		}

		if lastPage {
			break
		}
	}
	return fetched, skipped, nil
}

// backfillDocumentNumbers issues detail lookups only for cash movements
// that still lack a document number after the listing pass.
func (b *Builder) backfillDocumentNumbers(ctx context.Context, idx *PeriodIndex, entries []*model.LedgerEntry) {
	for _, entry := range entries {
		detail, err := b.reader.FetchEntryDetail(ctx, entry.SourceKind, entry.InternalID)
		if err != nil || detail.DocumentNumber == "" {
			if err != nil {
				ferr := &DetailFetchError{ID: entry.InternalID, Err: err}
				b.logger.Warn("document backfill failed, using fingerprint key",
					"entry_id", entry.InternalID,
					"error", ferr,
				)
			}
			idx.SetDocumentKey(model.FingerprintKey(entry.Amount, entry.Date, entry.InternalID), entry)
			continue
		}

		entry.DocumentNumber = detail.DocumentNumber
		idx.SetDocumentKey(detail.DocumentNumber, entry)
	}
}
