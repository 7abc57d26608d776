// Package statement parses bank statement files into normalized
// transactions the reconciliation engine can process.
//
// The expected input is a CSV export with the columns
//
//	external_id, date, amount, memo[, kind]
//
// A header row is detected and skipped. Dates may be ISO (2006-01-02) or
// day-first (02/01/2006); amounts may use either decimal convention
// ("1,234.56" or "1.234,56") and may carry a currency symbol.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// PeriodMargin is added on both sides of the statement's date range so
// ledger entries booked a few days off still fall inside the index window.
const PeriodMargin = 7 * 24 * time.Hour

// ParseError means the statement file is unusable: unreadable, malformed,
// or empty. It aborts the run; there is no partial processing.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("statement parse: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("statement parse: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Statement is the parsed result: ordered transactions plus the covering
// period (min/max transaction date widened by the margin).
type Statement struct {
	Transactions []model.BankTransaction
	Period       model.Period
}

// ParseFile reads and parses a statement file from disk.
func ParseFile(path string) (*Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("open %s", path), Err: err}
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads a statement from r. Row order is preserved; matching is
// first-come-first-served in statement order.
func Parse(r io.Reader) (*Statement, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // kind column is optional
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &ParseError{Reason: "read csv", Err: err}
	}

	var txs []model.BankTransaction
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if i == 0 && isHeaderRow(row) {
			continue
		}
		if len(row) < 4 {
			return nil, &ParseError{Reason: fmt.Sprintf("row %d: expected at least 4 columns, got %d", i+1, len(row))}
		}

		tx, err := parseRow(row)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("row %d", i+1), Err: err}
		}
		txs = append(txs, tx)
	}

	if len(txs) == 0 {
		return nil, &ParseError{Reason: "statement yields zero transactions"}
	}

	return &Statement{
		Transactions: txs,
		Period:       coveringPeriod(txs),
	}, nil
}

func parseRow(row []string) (model.BankTransaction, error) {
	externalID := strings.TrimSpace(row[0])
	if externalID == "" {
		return model.BankTransaction{}, fmt.Errorf("missing external id")
	}

	date, err := parseDate(strings.TrimSpace(row[1]))
	if err != nil {
		return model.BankTransaction{}, err
	}

	amount, err := parseAmount(row[2])
	if err != nil {
		return model.BankTransaction{}, err
	}

	memo := strings.TrimSpace(row[3])

	kind := model.KindCredit
	if amount < 0 {
		kind = model.KindDebit
	}
	if len(row) > 4 {
		switch strings.ToLower(strings.TrimSpace(row[4])) {
		case "credit", "c":
			kind = model.KindCredit
		case "debit", "d":
			kind = model.KindDebit
		case "":
			// keep sign-derived kind
		default:
			return model.BankTransaction{}, fmt.Errorf("unknown transaction kind %q", row[4])
		}
	}

	// A debit column value may arrive unsigned; the kind column wins.
	if kind == model.KindDebit && amount > 0 {
		amount = -amount
	}

	return model.BankTransaction{
		ExternalID:            externalID,
		Date:                  date,
		Amount:                amount,
		RawDescription:        memo,
		NormalizedDescription: model.NormalizeDescription(memo),
		Kind:                  kind,
	}, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
	"2006-01-02T15:04:05Z07:00",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// parseAmount converts "1,234.56", "1.234,56", "R$ -62,05" etc. to a
// signed float64.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"R$", "$", "€", "£", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		// comma is the decimal separator
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty amount")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", s)
	}
	return v, nil
}

func isHeaderRow(row []string) bool {
	if len(row) < 3 {
		return true
	}
	// If the amount column doesn't parse as a number, treat it as a header.
	_, err := parseAmount(row[2])
	return err != nil
}

func coveringPeriod(txs []model.BankTransaction) model.Period {
	min, max := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(min) {
			min = tx.Date
		}
		if tx.Date.After(max) {
			max = tx.Date
		}
	}
	return model.Period{
		Start: min.Add(-PeriodMargin),
		End:   max.Add(PeriodMargin),
	}
}
