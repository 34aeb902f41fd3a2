// Package convert maps between the domain model and the backend wire
// representation (snake_case fields, ISO-8601 timestamps).
package convert

import (
	"fmt"
	"time"

	"github.com/inkwell-app/inkwell/internal/model"
)

// wireTime always carries millisecond precision so epoch-ms values survive
// the string round-trip exactly.
const wireTime = "2006-01-02T15:04:05.000Z07:00"

// MillisToWire renders an epoch-millisecond instant as an ISO-8601 string.
func MillisToWire(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(wireTime)
}

// WireToMillis parses an ISO-8601 string into epoch milliseconds.
func WireToMillis(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

// EntryRow is the wire shape of a journal entry.
type EntryRow struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Mood         string   `json:"mood"`
	Tags         []string `json:"tags"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	AIReflection *string  `json:"ai_reflection,omitempty"`
}

// ToRow converts a domain entry to its wire shape.
func ToRow(e model.JournalEntry) EntryRow {
	row := EntryRow{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Content:   e.Content,
		Mood:      string(e.Mood),
		Tags:      e.Tags,
		CreatedAt: MillisToWire(e.CreatedAt),
		UpdatedAt: MillisToWire(e.UpdatedAt),
	}
	if row.Tags == nil {
		row.Tags = []string{}
	}
	if e.AIReflection != "" {
		r := e.AIReflection
		row.AIReflection = &r
	}
	return row
}

// FromRow converts a wire row to a domain entry, validating mood and
// timestamps.
func FromRow(row EntryRow) (model.JournalEntry, error) {
	mood, err := model.ParseMood(row.Mood)
	if err != nil {
		return model.JournalEntry{}, err
	}
	createdAt, err := WireToMillis(row.CreatedAt)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("created_at: %w", err)
	}
	updatedAt, err := WireToMillis(row.UpdatedAt)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("updated_at: %w", err)
	}
	tags := row.Tags
	if tags == nil {
		tags = []string{}
	}
	e := model.JournalEntry{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		Content:   row.Content,
		Mood:      mood,
		Tags:      tags,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if row.AIReflection != nil {
		e.AIReflection = *row.AIReflection
	}
	return e, nil
}

// FromRows converts a slice of wire rows, failing on the first bad row.
func FromRows(rows []EntryRow) ([]model.JournalEntry, error) {
	out := make([]model.JournalEntry, 0, len(rows))
	for i, row := range rows {
		e, err := FromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row[%d]: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}
