package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DocumentNumberLimit is the maximum length of a ledger document number,
// imposed by a field-length limit in the accounting system.
const DocumentNumberLimit = 20

// TruncateDocumentNumber reduces an identifier to the comparable form of
// the ledger's document-number field: the first 20 characters (the
// downstream system truncates raw identifiers), then any non-alphanumeric
// characters removed. It must be applied identically to both sides of
// every comparison, and is idempotent.
func TruncateDocumentNumber(id string) string {
	runes := []rune(id)
	if len(runes) > DocumentNumberLimit {
		runes = runes[:DocumentNumberLimit]
	}
	var b strings.Builder
	b.Grow(len(runes))
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeDescription lowercases a statement memo, replaces punctuation
// with spaces and collapses repeated whitespace.
func NormalizeDescription(s string) string {
	s = strings.ToLower(s)
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Tokens splits a normalized description into words longer than minLen
// characters. Short tokens carry no matching signal (articles, bank codes).
func Tokens(normalized string, minLen int) []string {
	var out []string
	for _, w := range strings.Fields(normalized) {
		if len(w) > minLen {
			out = append(out, w)
		}
	}
	return out
}

// ValueDateKey builds the "amount|date" key used by the period index.
// Amounts are keyed by absolute value so statement debits can meet
// payable entries recorded with the opposite sign.
func ValueDateKey(amount float64, date time.Time) string {
	if amount < 0 {
		amount = -amount
	}
	return fmt.Sprintf("%.2f|%s", amount, date.Format("2006-01-02"))
}

// FingerprintKey is the synthetic document-number key used when the
// ledger's detail endpoint cannot supply a real document number. It keeps
// the entry indexable instead of silently dropping it.
func FingerprintKey(amount float64, date time.Time, internalID string) string {
	return fmt.Sprintf("%s|%s", ValueDateKey(amount, date), internalID)
}
