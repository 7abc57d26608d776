package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncateDocumentNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "short id unchanged apart from separators",
			input: "NF-1234",
			want:  "NF1234",
		},
		{
			name:  "uuid-style id cut at the downstream limit",
			input: "68725a13-ed77-475f-9abc123",
			want:  "68725a13ed77475f9",
		},
		{
			name:  "already truncated ledger document",
			input: "68725a13-ed77-475f-9",
			want:  "68725a13ed77475f9",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			// The limit counts characters, so a multibyte letter at the
			// boundary survives intact.
			name:  "multibyte letter at the limit",
			input: "aaaaaaaaaaaaaaaaaaaçb-123",
			want:  "aaaaaaaaaaaaaaaaaaaç",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateDocumentNumber(tt.input))
		})
	}
}

func TestTruncateDocumentNumber_Idempotent(t *testing.T) {
	inputs := []string{
		"68725a13-ed77-475f-9abc123",
		"DOC/2024/000123-A",
		"x",
		"",
		"a-very-long-identifier-with-many-segments-0001",
	}

	for _, in := range inputs {
		once := TruncateDocumentNumber(in)
		assert.Equal(t, once, TruncateDocumentNumber(once), "input %q", in)
	}
}

func TestTruncateDocumentNumber_BothSidesAgree(t *testing.T) {
	// A statement external id and the ledger document derived from it must
	// land on the same key.
	externalID := "68725a13-ed77-475f-9abc123"
	ledgerDocument := "68725a13-ed77-475f-9"

	assert.Equal(t,
		TruncateDocumentNumber(ledgerDocument),
		TruncateDocumentNumber(externalID),
	)
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"PIX*Recebido//LOJA_CAFE", "pix recebido loja cafe"},
		{"  TED -- FORNECEDOR., ABC  ", "ted fornecedor abc"},
		{"pagamento#123", "pagamento 123"},
		{"", ""},
		{"***", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDescription(tt.input), "input %q", tt.input)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("pix recebido de loja cafe", 3)
	assert.Equal(t, []string{"recebido", "loja", "cafe"}, got)

	assert.Nil(t, Tokens("a de ok", 3))
}

func TestValueDateKey(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "62.05|2025-03-10", ValueDateKey(62.05, day))
	// Keyed by absolute value: debits and payables share a bucket.
	assert.Equal(t, ValueDateKey(62.05, day), ValueDateKey(-62.05, day))
}

func TestFingerprintKey(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "62.05|2025-03-10|mov-17", FingerprintKey(-62.05, day, "mov-17"))
}

func TestPeriodContains(t *testing.T) {
	p := Period{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, p.Contains(p.Start))
	assert.True(t, p.Contains(p.End))
	assert.True(t, p.Contains(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(p.End.AddDate(0, 0, 1)))
	assert.False(t, p.Contains(p.Start.AddDate(0, 0, -1)))
}
