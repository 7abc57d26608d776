// Package model holds the core domain types shared by the reconciliation
// engine: bank statement transactions, ledger entries and learning examples.
package model

import (
	"fmt"
	"time"
)

// SourceKind identifies which ledger collection an entry came from.
type SourceKind string

const (
	SourceCashAccount SourceKind = "CASH_ACCOUNT"
	SourcePayable     SourceKind = "PAYABLE"
	SourceReceivable  SourceKind = "RECEIVABLE"
)

// TransactionKind is the direction of a bank transaction.
type TransactionKind string

const (
	KindCredit TransactionKind = "credit"
	KindDebit  TransactionKind = "debit"
)

// Outcome is the terminal state of a bank transaction after a run.
// Every transaction ends in exactly one of these.
type Outcome string

const (
	OutcomeReconciled   Outcome = "reconciled"
	OutcomeAutoCreated  Outcome = "auto_created"
	OutcomeManualReview Outcome = "manual_review"
	OutcomeError        Outcome = "error"
)

// BankTransaction is one normalized row of a bank statement.
type BankTransaction struct {
	ExternalID            string
	Date                  time.Time
	Amount                float64 // signed, transaction-currency units
	RawDescription        string
	NormalizedDescription string
	Kind                  TransactionKind
}

// LedgerEntry is a record from the external accounting system.
// The typed SourceKind replaces the untyped payloads the ledger API returns;
// entries are converted once at ingestion.
type LedgerEntry struct {
	InternalID     string
	SourceKind     SourceKind
	Amount         float64 // signed: outflows negative, inflows positive
	Date           time.Time
	DocumentNumber string // already truncated, may be empty
	Description    string
	Category       string
	Counterparty   string
	Reconciled     bool
	OpeningBalance bool // pseudo-entry, never indexed
}

// MatchCandidate pairs a ledger entry with the tier that produced it.
type MatchCandidate struct {
	Entry      *LedgerEntry
	Tier       int     // 1-3
	Confidence float64 // 0-1
}

// LearningExample is one confirmed or auto-created categorization outcome.
// Examples are append-only; the classifier is re-derived from them.
type LearningExample struct {
	ID                    int64
	NormalizedDescription string
	Amount                float64
	Category              string
	Counterparty          string
	Confidence            float64
	CreatedAt             time.Time
}

// NewEntry is the payload for creating a ledger entry from an
// unmatched bank transaction.
type NewEntry struct {
	Date         time.Time
	Amount       float64
	Description  string
	Category     string
	Counterparty string
	ExternalID   string
}

// Period is the date window a reconciliation run operates over.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window (inclusive).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// Category is an entry in the ledger's category catalog.
type Category struct {
	Code string
	Name string
}

// Counterparty is an entry in the ledger's counterparty catalog.
type Counterparty struct {
	Code string
	Name string
}
