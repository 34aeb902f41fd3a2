// Package store implements the typed client for the remote entry
// persistence backend. Backend errors are normalized into the errs
// taxonomy at this boundary; retry policy belongs to the caller.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/convert"
	"github.com/inkwell-app/inkwell/internal/errs"
	"github.com/inkwell-app/inkwell/internal/model"
)

// EntryStore provides access to the remote entry collection.
type EntryStore interface {
	// List returns all entries visible to the session, newest createdAt first.
	List(ctx context.Context) ([]model.JournalEntry, error)

	// Upsert inserts or replaces the record keyed by entry.ID and returns the
	// canonical persisted record. A missing id is generated client-side.
	Upsert(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error)

	// Remove deletes the record by id. Deleting an absent id may or may not
	// error depending on backend semantics.
	Remove(ctx context.Context, id string) error
}

// TokenSource yields the current session access token, or "" when
// unauthenticated.
type TokenSource func() string

// Client talks to a PostgREST-shaped backend over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	token   TokenSource
	httpc   *http.Client
	log     *zap.Logger
	now     func() time.Time
}

var _ EntryStore = (*Client)(nil)

// NewClient constructs a store client. timeout bounds every request; a hung
// backend resolves as an unavailable error instead of blocking forever.
func NewClient(baseURL, apiKey string, token TokenSource, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
		log:     log,
		now:     time.Now,
	}
}

const entriesPath = "/rest/v1/entries"

// List fetches the collection ordered by created_at descending.
func (c *Client) List(ctx context.Context) ([]model.JournalEntry, error) {
	u := c.baseURL + entriesPath + "?select=*&order=created_at.desc"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errs.NewStoreError("list", errs.ErrUnavailable, err.Error())
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn("list entries failed", zap.Error(err))
		return nil, errs.NewStoreError("list", errs.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, storeError("list", resp)
	}

	var rows []convert.EntryRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, errs.NewStoreError("list", errs.ErrUnavailable, fmt.Sprintf("decode: %v", err))
	}
	out, err := convert.FromRows(rows)
	if err != nil {
		return nil, errs.NewStoreError("list", errs.ErrUnavailable, err.Error())
	}
	return out, nil
}

// Upsert writes a full replacement record and returns what the backend
// persisted. updated_at is stamped on every call; created_at is preserved
// when the caller supplies one.
func (c *Client) Upsert(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	if entry.UserID == "" {
		return model.JournalEntry{}, errs.NewStoreError("upsert", errs.ErrConstraint, "missing user id")
	}
	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewV4()).String()
	}
	nowMs := c.now().UnixMilli()
	if entry.CreatedAt == 0 {
		entry.CreatedAt = nowMs
	}
	entry.UpdatedAt = nowMs

	body, err := json.Marshal(convert.ToRow(entry))
	if err != nil {
		return model.JournalEntry{}, errs.NewStoreError("upsert", errs.ErrUnavailable, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+entriesPath, bytes.NewReader(body))
	if err != nil {
		return model.JournalEntry{}, errs.NewStoreError("upsert", errs.ErrUnavailable, err.Error())
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=representation")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn("upsert entry failed", zap.String("id", entry.ID), zap.Error(err))
		return model.JournalEntry{}, errs.NewStoreError("upsert", errs.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.JournalEntry{}, storeError("upsert", resp)
	}

	var rows []convert.EntryRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return model.JournalEntry{}, errs.NewStoreError("upsert", errs.ErrUnavailable, fmt.Sprintf("decode: %v", err))
	}
	if len(rows) == 0 {
		return model.JournalEntry{}, errs.NewStoreError("upsert", errs.ErrUnavailable, "empty representation")
	}
	return convert.FromRow(rows[0])
}

// Remove deletes by id. Any 2xx counts as success regardless of whether the
// row existed.
func (c *Client) Remove(ctx context.Context, id string) error {
	u := c.baseURL + entriesPath + "?id=eq." + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return errs.NewStoreError("remove", errs.ErrUnavailable, err.Error())
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn("remove entry failed", zap.String("id", id), zap.Error(err))
		return errs.NewStoreError("remove", errs.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return storeError("remove", resp)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// storeError maps an HTTP failure status to the errs taxonomy, carrying the
// backend message when one is present.
func storeError(op string, resp *http.Response) *errs.StoreError {
	msg := ""
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		var pe struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(b, &pe) == nil && pe.Message != "" {
			msg = pe.Message
		} else if len(b) > 0 {
			msg = string(b)
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.NewStoreError(op, errs.ErrUnauthorized, msg)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return errs.NewStoreError(op, errs.ErrConstraint, msg)
	case http.StatusNotFound:
		return errs.NewStoreError(op, errs.ErrNotFound, msg)
	default:
		if msg == "" {
			msg = fmt.Sprintf("http %d", resp.StatusCode)
		}
		return errs.NewStoreError(op, errs.ErrUnavailable, msg)
	}
}
