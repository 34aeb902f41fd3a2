// Package journal contains the editor state machine and the collection view
// model that together own local entry state between the presentation layer
// and the remote store.
package journal

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/model"
	"github.com/inkwell-app/inkwell/internal/store"
)

// Collection holds the loaded entry set. It is only ever mutated by
// replacing the set wholesale after a reload, never by in-place patching
// from the editor; that sidesteps partial-update races at the cost of an
// extra round-trip per mutation.
type Collection struct {
	store store.EntryStore
	log   *zap.Logger

	mu      sync.RWMutex
	entries []model.JournalEntry
}

// NewCollection constructs an empty collection over the given store.
func NewCollection(s store.EntryStore, log *zap.Logger) *Collection {
	return &Collection{store: s, log: log}
}

// Reload fetches the full entry set and replaces the held one. On failure
// the previous set is kept; no partial results are applied.
func (c *Collection) Reload(ctx context.Context) error {
	loaded, err := c.store.List(ctx)
	if err != nil {
		c.log.Warn("collection reload failed", zap.Error(err))
		return err
	}
	c.mu.Lock()
	c.entries = loaded
	c.mu.Unlock()
	return nil
}

// Clear drops the held set (session ended).
func (c *Collection) Clear() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

// Entries returns a copy of the held set, newest createdAt first as listed
// by the store.
func (c *Collection) Entries() []model.JournalEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.JournalEntry, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Clone()
	}
	return out
}

// Search filters the held set by a case-insensitive substring match over
// title, content and tags. An empty query returns everything.
func (c *Collection) Search(query string) []model.JournalEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	all := c.Entries()
	if q == "" {
		return all
	}
	out := make([]model.JournalEntry, 0, len(all))
	for _, e := range all {
		if matches(e, q) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e model.JournalEntry, q string) bool {
	if strings.Contains(strings.ToLower(e.Title), q) ||
		strings.Contains(strings.ToLower(e.Content), q) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
