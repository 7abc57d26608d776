package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIToken = "test-token"
	cfg.PageSize = 2
	cfg.MaxRetries = 1
	return NewClient(cfg, nil)
}

func TestListEntries_CashMovements(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/cash-movements", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2025-03-01", r.URL.Query().Get("from"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))

		_ = json.NewEncoder(w).Encode([]cashMovementPayload{
			{ID: "mov-1", Value: 62.05, Direction: "out", Date: "2025-03-10", DocumentNumber: "NF-100", Description: "pagamento fornecedor", EntryType: "movement"},
		})
	}))

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	entries, last, err := client.ListEntries(context.Background(), model.SourceCashAccount, from, to, 1)
	require.NoError(t, err)
	assert.True(t, last, "short page must be the last one")
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, model.SourceCashAccount, e.SourceKind)
	assert.InDelta(t, -62.05, e.Amount, 0.001, "outflow must be negative")
	assert.Equal(t, "NF100", e.DocumentNumber, "document number arrives truncated")
	assert.False(t, e.OpeningBalance)
}

func TestListEntries_PayablesAndReceivablesSigns(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/payables":
			_ = json.NewEncoder(w).Encode([]payablePayload{
				{ID: "pay-1", Value: 100, PaymentDate: "2025-03-05", Supplier: "ACME", Description: "aluguel"},
			})
		case "/api/v1/receivables":
			_ = json.NewEncoder(w).Encode([]receivablePayload{
				{ID: "rec-1", Value: 250, ReceiptDate: "2025-03-06", Customer: "Loja Cafe", Description: "venda"},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	payables, _, err := client.ListEntries(context.Background(), model.SourcePayable, from, to, 1)
	require.NoError(t, err)
	require.Len(t, payables, 1)
	assert.InDelta(t, -100.0, payables[0].Amount, 0.001)
	assert.Equal(t, "ACME", payables[0].Counterparty)

	receivables, _, err := client.ListEntries(context.Background(), model.SourceReceivable, from, to, 1)
	require.NoError(t, err)
	require.Len(t, receivables, 1)
	assert.InDelta(t, 250.0, receivables[0].Amount, 0.001)
	assert.Equal(t, "Loja Cafe", receivables[0].Counterparty)
}

func TestListEntries_FullPageIsNotLast(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]receivablePayload{
			{ID: "rec-1", Value: 10, ReceiptDate: "2025-03-06"},
			{ID: "rec-2", Value: 20, ReceiptDate: "2025-03-07"},
		})
	}))

	_, last, err := client.ListEntries(context.Background(), model.SourceReceivable, time.Now(), time.Now(), 1)
	require.NoError(t, err)
	assert.False(t, last, "page_size entries means more pages may follow")
}

func TestListEntries_RetriesThenTransientError(t *testing.T) {
	var calls int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, _, err := client.ListEntries(context.Background(), model.SourceCashAccount, time.Now(), time.Now(), 1)

	var terr *TransientAPIError
	require.ErrorAs(t, err, &terr)
	assert.Greater(t, calls, 1, "5xx must be retried before giving up")
}

func TestListEntries_ClientErrorIsNotRetried(t *testing.T) {
	var calls int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"bad token"}`)
	}))

	_, _, err := client.ListEntries(context.Background(), model.SourceCashAccount, time.Now(), time.Now(), 1)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusUnauthorized, serr.Status)
	assert.Equal(t, 1, calls)
}

func TestFetchEntryDetail(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/cash-movements/mov-9", r.URL.Path)
		_ = json.NewEncoder(w).Encode(cashMovementPayload{
			ID: "mov-9", Value: 18.9, Direction: "out", Date: "2025-03-15",
			DocumentNumber: "68725a13-ed77-475f-9abc123",
		})
	}))

	entry, err := client.FetchEntryDetail(context.Background(), model.SourceCashAccount, "mov-9")
	require.NoError(t, err)
	assert.Equal(t, "68725a13ed77475f9", entry.DocumentNumber)
}

func TestCreateEntry(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/cash-movements", r.URL.Path)

		var payload createEntryPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "tx-123", payload.ExternalID)

		_ = json.NewEncoder(w).Encode(cashMovementPayload{
			ID: "mov-77", Value: 99.9, Direction: "in", Date: payload.Date,
			Category: payload.Category, Counterparty: payload.Counterparty,
		})
	}))

	created, err := client.CreateEntry(context.Background(), model.NewEntry{
		Date:        time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		Amount:      99.9,
		Description: "pix recebido loja cafe",
		Category:    "Sales",
		ExternalID:  "tx-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "mov-77", created.InternalID)
	assert.InDelta(t, 99.9, created.Amount, 0.001)
}

func TestMarkReconciled(t *testing.T) {
	var path string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.MarkReconciled(context.Background(), model.SourcePayable, "pay-3")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/payables/pay-3/reconcile", path)
}

func TestCatalogs(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/categories":
			_ = json.NewEncoder(w).Encode([]categoryPayload{{Code: "REV01", Name: "Sales"}})
		case "/api/v1/counterparties":
			_ = json.NewEncoder(w).Encode([]counterpartyPayload{{Code: "CP01", Name: "Loja Cafe"}})
		default:
			http.NotFound(w, r)
		}
	}))

	cats, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Sales", cats[0].Name)

	cps, err := client.ListCounterparties(context.Background())
	require.NoError(t, err)
	require.Len(t, cps, 1)
	assert.Equal(t, "CP01", cps[0].Code)
}
