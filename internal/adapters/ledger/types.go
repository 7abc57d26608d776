package ledger

import (
	"fmt"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// Wire payloads for the three ledger collections. Each source kind has its
// own fixed field set; payloads are converted to model.LedgerEntry once at
// ingestion and never re-interpreted downstream.

type cashMovementPayload struct {
	ID             string  `json:"id"`
	Value          float64 `json:"value"`     // absolute
	Direction      string  `json:"direction"` // "in" or "out"
	Date           string  `json:"date"`
	DocumentNumber string  `json:"document_number,omitempty"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Counterparty   string  `json:"counterparty"`
	Reconciled     bool    `json:"reconciled"`
	EntryType      string  `json:"entry_type"` // "movement" or "opening_balance"
}

type payablePayload struct {
	ID             string  `json:"id"`
	Value          float64 `json:"value"` // absolute
	PaymentDate    string  `json:"payment_date"`
	DocumentNumber string  `json:"document_number,omitempty"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Supplier       string  `json:"supplier"`
	Reconciled     bool    `json:"reconciled"`
}

type receivablePayload struct {
	ID             string  `json:"id"`
	Value          float64 `json:"value"` // absolute
	ReceiptDate    string  `json:"receipt_date"`
	DocumentNumber string  `json:"document_number,omitempty"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Customer       string  `json:"customer"`
	Reconciled     bool    `json:"reconciled"`
}

type categoryPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type counterpartyPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type createEntryPayload struct {
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Counterparty string  `json:"counterparty"`
	ExternalID   string  `json:"external_id"`
}

const wireDateLayout = "2006-01-02"

func parseWireDate(s string) (time.Time, error) {
	t, err := time.Parse(wireDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad ledger date %q: %w", s, err)
	}
	return t, nil
}

func (p cashMovementPayload) toEntry() (model.LedgerEntry, error) {
	date, err := parseWireDate(p.Date)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	amount := p.Value
	if p.Direction == "out" {
		amount = -amount
	}
	return model.LedgerEntry{
		InternalID:     p.ID,
		SourceKind:     model.SourceCashAccount,
		Amount:         amount,
		Date:           date,
		DocumentNumber: model.TruncateDocumentNumber(p.DocumentNumber),
		Description:    p.Description,
		Category:       p.Category,
		Counterparty:   p.Counterparty,
		Reconciled:     p.Reconciled,
		OpeningBalance: p.EntryType == "opening_balance",
	}, nil
}

func (p payablePayload) toEntry() (model.LedgerEntry, error) {
	date, err := parseWireDate(p.PaymentDate)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	return model.LedgerEntry{
		InternalID:     p.ID,
		SourceKind:     model.SourcePayable,
		Amount:         -p.Value, // payables are outflows
		Date:           date,
		DocumentNumber: model.TruncateDocumentNumber(p.DocumentNumber),
		Description:    p.Description,
		Category:       p.Category,
		Counterparty:   p.Supplier,
		Reconciled:     p.Reconciled,
	}, nil
}

func (p receivablePayload) toEntry() (model.LedgerEntry, error) {
	date, err := parseWireDate(p.ReceiptDate)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	return model.LedgerEntry{
		InternalID:     p.ID,
		SourceKind:     model.SourceReceivable,
		Amount:         p.Value,
		Date:           date,
		DocumentNumber: model.TruncateDocumentNumber(p.DocumentNumber),
		Description:    p.Description,
		Category:       p.Category,
		Counterparty:   p.Customer,
		Reconciled:     p.Reconciled,
	}, nil
}
