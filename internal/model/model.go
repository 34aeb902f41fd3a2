// Package model defines domain entities shared by the store client,
// the session controller and the editor.
package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Mood classifies a journal entry. Exactly six values are valid.
type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodCalm     Mood = "calm"
	MoodNeutral  Mood = "neutral"
	MoodSad      Mood = "sad"
	MoodStressed Mood = "stressed"
	MoodInspired Mood = "inspired"
)

// ParseMood validates a wire value. An empty value maps to MoodNeutral
// (absent field default); anything else outside the six values is an error.
func ParseMood(s string) (Mood, error) {
	if s == "" {
		return MoodNeutral, nil
	}
	switch m := Mood(s); m {
	case MoodHappy, MoodCalm, MoodNeutral, MoodSad, MoodStressed, MoodInspired:
		return m, nil
	}
	return "", fmt.Errorf("invalid mood %q", s)
}

// User is the authenticated identity mapped from the provider.
// It exists only while a session is active.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// JournalEntry is a persisted record. Timestamps are kept as epoch
// milliseconds in the domain; the wire boundary converts to ISO-8601.
type JournalEntry struct {
	ID           string // UUID, assigned client-side at first save
	UserID       string // owner, immutable after creation
	Title        string
	Content      string
	Mood         Mood
	Tags         []string
	CreatedAt    int64  // epoch ms
	UpdatedAt    int64  // epoch ms, >= CreatedAt
	AIReflection string // optional, append-only from the client side
}

// Clone returns a value copy with its own tags slice, so a draft never
// aliases the record held by the collection.
func (e JournalEntry) Clone() JournalEntry {
	c := e
	if e.Tags != nil {
		c.Tags = append(make([]string, 0, len(e.Tags)), e.Tags...)
	}
	return c
}

// Draft is the editor's working copy of an entry under construction.
// Every field may be empty until Save builds the full record.
type Draft struct {
	ID           string
	Title        string
	Content      string
	Mood         Mood
	Tags         []string
	CreatedAt    int64
	AIReflection string
}

// NewDraft seeds an empty draft with the documented defaults.
func NewDraft() Draft {
	return Draft{Mood: MoodNeutral, Tags: []string{}}
}

// DraftOf copies an existing entry into a draft for editing.
func DraftOf(e JournalEntry) Draft {
	c := e.Clone()
	return Draft{
		ID:           c.ID,
		Title:        c.Title,
		Content:      c.Content,
		Mood:         c.Mood,
		Tags:         c.Tags,
		CreatedAt:    c.CreatedAt,
		AIReflection: c.AIReflection,
	}
}

// Validate reports whether the draft can be persisted.
func (d Draft) Validate() error {
	if d.Title == "" || d.Content == "" {
		return fmt.Errorf("title and content are required")
	}
	return nil
}

// Record builds the full entry to persist for the given owner at the given
// instant. A missing id is generated here so the caller can reference the
// record before the round-trip completes; createdAt is preserved when set.
func (d Draft) Record(userID string, now time.Time) JournalEntry {
	id := d.ID
	if id == "" {
		id = uuid.Must(uuid.NewV4()).String()
	}
	mood := d.Mood
	if mood == "" {
		mood = MoodNeutral
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	nowMs := now.UnixMilli()
	createdAt := d.CreatedAt
	if createdAt == 0 {
		createdAt = nowMs
	}
	return JournalEntry{
		ID:           id,
		UserID:       userID,
		Title:        d.Title,
		Content:      d.Content,
		Mood:         mood,
		Tags:         append(make([]string, 0, len(tags)), tags...),
		CreatedAt:    createdAt,
		UpdatedAt:    nowMs,
		AIReflection: d.AIReflection,
	}
}
