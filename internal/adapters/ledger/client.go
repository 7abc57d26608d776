// Package ledger is the HTTP client for the external accounting system.
//
// The engine only talks to the ledger through this client: paginated entry
// listing per source kind, a detail endpoint used for document-number
// backfill, entry creation, reconciliation flagging, and the
// category/counterparty catalogs. Transient failures are retried with
// exponential backoff; exhausted retries surface as *TransientAPIError so
// callers can tell a flaky ledger from a programming error.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// TransientAPIError means the ledger API kept failing after bounded
// retries. Depending on where it happens it is downgraded to a page skip
// or escalated to an index load failure.
type TransientAPIError struct {
	Op  string
	Err error
}

func (e *TransientAPIError) Error() string {
	return fmt.Sprintf("ledger api: %s: %v", e.Op, e.Err)
}

func (e *TransientAPIError) Unwrap() error { return e.Err }

// StatusError is a non-retryable HTTP failure (4xx).
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledger api: %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Config holds ledger API connection settings.
type Config struct {
	BaseURL    string
	APIToken   string
	PageSize   int
	MaxRetries int
	Timeout    time.Duration
}

// DefaultConfig returns sensible defaults for the ledger client.
func DefaultConfig() Config {
	return Config{
		PageSize:   100,
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}
}

// Client talks to the ledger API.
type Client struct {
	http     *retryablehttp.Client
	baseURL  string
	token    string
	pageSize int
	logger   *slog.Logger
}

// NewClient creates a ledger API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil // slog below instead of retryablehttp's own logger

	return &Client{
		http:     rc,
		baseURL:  cfg.BaseURL,
		token:    cfg.APIToken,
		pageSize: cfg.PageSize,
		logger:   logger.With("system", "ledger"),
	}
}

// PageSize is the page size the client requests from list endpoints.
func (c *Client) PageSize() int { return c.pageSize }

func sourcePath(kind model.SourceKind) string {
	switch kind {
	case model.SourceCashAccount:
		return "cash-movements"
	case model.SourcePayable:
		return "payables"
	case model.SourceReceivable:
		return "receivables"
	default:
		return string(kind)
	}
}

// ListEntries fetches one page of ledger entries of the given kind inside
// [from, to]. The second return value reports whether this was the last
// page (empty or short).
func (c *Client) ListEntries(ctx context.Context, kind model.SourceKind, from, to time.Time, page int) ([]model.LedgerEntry, bool, error) {
	q := url.Values{}
	q.Set("from", from.Format(wireDateLayout))
	q.Set("to", to.Format(wireDateLayout))
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("page_size", fmt.Sprintf("%d", c.pageSize))

	op := fmt.Sprintf("list %s page %d", sourcePath(kind), page)
	body, err := c.get(ctx, op, fmt.Sprintf("/api/v1/%s?%s", sourcePath(kind), q.Encode()))
	if err != nil {
		return nil, false, err
	}

	entries, err := decodeEntries(kind, body)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	last := len(entries) < c.pageSize
	return entries, last, nil
}

func decodeEntries(kind model.SourceKind, body []byte) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	switch kind {
	case model.SourceCashAccount:
		var payloads []cashMovementPayload
		if err := json.Unmarshal(body, &payloads); err != nil {
			return nil, err
		}
		for _, p := range payloads {
			e, err := p.toEntry()
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	case model.SourcePayable:
		var payloads []payablePayload
		if err := json.Unmarshal(body, &payloads); err != nil {
			return nil, err
		}
		for _, p := range payloads {
			e, err := p.toEntry()
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	case model.SourceReceivable:
		var payloads []receivablePayload
		if err := json.Unmarshal(body, &payloads); err != nil {
			return nil, err
		}
		for _, p := range payloads {
			e, err := p.toEntry()
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
	return entries, nil
}

// FetchEntryDetail loads the full record for a single entry. The cash
// movement list endpoint omits document numbers; this is the backfill call.
func (c *Client) FetchEntryDetail(ctx context.Context, kind model.SourceKind, id string) (model.LedgerEntry, error) {
	op := fmt.Sprintf("detail %s/%s", sourcePath(kind), id)
	body, err := c.get(ctx, op, fmt.Sprintf("/api/v1/%s/%s", sourcePath(kind), url.PathEscape(id)))
	if err != nil {
		return model.LedgerEntry{}, err
	}

	entries, err := decodeEntries(kind, append(append([]byte("["), body...), ']'))
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(entries) != 1 {
		return model.LedgerEntry{}, fmt.Errorf("%s: expected one entry, got %d", op, len(entries))
	}
	return entries[0], nil
}

// CreateEntry creates a cash movement for an unmatched bank transaction.
func (c *Client) CreateEntry(ctx context.Context, entry model.NewEntry) (model.LedgerEntry, error) {
	payload := createEntryPayload{
		Date:         entry.Date.Format(wireDateLayout),
		Amount:       entry.Amount,
		Description:  entry.Description,
		Category:     entry.Category,
		Counterparty: entry.Counterparty,
		ExternalID:   entry.ExternalID,
	}

	body, err := c.do(ctx, "create entry", http.MethodPost, "/api/v1/cash-movements", payload)
	if err != nil {
		return model.LedgerEntry{}, err
	}

	var created cashMovementPayload
	if err := json.Unmarshal(body, &created); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("create entry: decode response: %w", err)
	}
	return created.toEntry()
}

// MarkReconciled flips the reconciled flag on an existing entry.
func (c *Client) MarkReconciled(ctx context.Context, kind model.SourceKind, id string) error {
	op := fmt.Sprintf("reconcile %s/%s", sourcePath(kind), id)
	_, err := c.do(ctx, op, http.MethodPost, fmt.Sprintf("/api/v1/%s/%s/reconcile", sourcePath(kind), url.PathEscape(id)), nil)
	return err
}

// ListCategories returns the ledger's category catalog.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	body, err := c.get(ctx, "list categories", "/api/v1/categories")
	if err != nil {
		return nil, err
	}

	var payloads []categoryPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]model.Category, len(payloads))
	for i, p := range payloads {
		out[i] = model.Category{Code: p.Code, Name: p.Name}
	}
	return out, nil
}

// ListCounterparties returns the ledger's counterparty catalog.
func (c *Client) ListCounterparties(ctx context.Context) ([]model.Counterparty, error) {
	body, err := c.get(ctx, "list counterparties", "/api/v1/counterparties")
	if err != nil {
		return nil, err
	}

	var payloads []counterpartyPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, fmt.Errorf("list counterparties: %w", err)
	}
	out := make([]model.Counterparty, len(payloads))
	for i, p := range payloads {
		out[i] = model.Counterparty{Code: p.Code, Name: p.Name}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	return c.do(ctx, op, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var rawBody any
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		rawBody = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, rawBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// Retries exhausted (network error or persistent 5xx).
		return nil, &TransientAPIError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientAPIError{Op: op, Err: err}
	}

	c.logger.Debug("ledger api call",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: truncateBody(body)}
	}
	return body, nil
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
