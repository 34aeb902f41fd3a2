package journal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/model"
	"github.com/inkwell-app/inkwell/internal/store"
)

// State names the editor's position in its lifecycle. The states double as
// mutual-exclusion gates: at most one mutating operation is in flight.
type State string

const (
	StateIdle       State = "idle"
	StateEditing    State = "editing"
	StateSaving     State = "saving"
	StateGenerating State = "generating-reflection"
	StateDeleting   State = "deleting"
	StateViewing    State = "viewing"
)

// ReflectionGenerator produces best-effort reflection text. It never fails;
// degraded modes resolve to displayable placeholder strings.
type ReflectionGenerator interface {
	Generate(ctx context.Context, title string, mood model.Mood, content string) string
}

// UserIDSource yields the acting session's user id, or "" when
// unauthenticated.
type UserIDSource func() string

// Editor owns the in-progress draft and coordinates save/delete against the
// store and reflection generation against the generator, guaranteeing the
// draft is never left inconsistent across concurrent async operations.
//
// In-flight completions are tagged with the draft token they belong to; a
// completion whose token no longer matches the active draft is dropped
// instead of being applied to a different draft.
type Editor struct {
	store  store.EntryStore
	gen    ReflectionGenerator
	coll   *Collection
	userID UserIDSource
	log    *zap.Logger

	mu            sync.Mutex
	state         State
	draft         model.Draft
	token         uint64 // bumped on every open/close
	dirty         bool
	validationErr string
	lastErr       string

	now func() time.Time
}

// NewEditor constructs an idle editor.
func NewEditor(s store.EntryStore, gen ReflectionGenerator, coll *Collection, userID UserIDSource, log *zap.Logger) *Editor {
	return &Editor{
		store:  s,
		gen:    gen,
		coll:   coll,
		userID: userID,
		log:    log,
		state:  StateIdle,
		now:    time.Now,
	}
}

// State returns the current lifecycle state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Draft returns a copy of the working draft.
func (e *Editor) Draft() model.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.draft
	d.Tags = append([]string(nil), e.draft.Tags...)
	return d
}

// Dirty reports whether the draft has unsaved edits.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// ValidationError returns the local validation message, "" when none.
func (e *Editor) ValidationError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validationErr
}

// LastError returns the most recent store failure surfaced to the user.
func (e *Editor) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// OpenNew starts editing a fresh draft. Valid from Idle and Viewing.
func (e *Editor) OpenNew() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle && e.state != StateViewing {
		return false
	}
	e.draft = model.NewDraft()
	e.token++
	e.dirty = false
	e.validationErr = ""
	e.lastErr = ""
	e.state = StateEditing
	return true
}

// OpenExisting takes a value copy of an entry as the draft, for editing or
// read-only viewing. The draft never aliases the collection's record.
func (e *Editor) OpenExisting(entry model.JournalEntry, readOnly bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = model.DraftOf(entry)
	e.token++
	e.dirty = false
	e.validationErr = ""
	e.lastErr = ""
	if readOnly {
		e.state = StateViewing
	} else {
		e.state = StateEditing
	}
}

// Close exits the editor, discarding the draft unconditionally. An in-flight
// save or reflection for the discarded draft resolves against a stale token
// and is dropped.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateEditing, StateViewing, StateGenerating:
		e.draft = model.Draft{}
		e.token++
		e.dirty = false
		e.validationErr = ""
		e.lastErr = ""
		e.state = StateIdle
	}
}

// SetTitle updates the draft title. Valid only while Editing.
func (e *Editor) SetTitle(s string) { e.edit(func(d *model.Draft) { d.Title = s }) }

// SetContent updates the draft content. Valid only while Editing.
func (e *Editor) SetContent(s string) { e.edit(func(d *model.Draft) { d.Content = s }) }

// SetMood updates the draft mood. Valid only while Editing.
func (e *Editor) SetMood(m model.Mood) { e.edit(func(d *model.Draft) { d.Mood = m }) }

// SetTags replaces the draft tags. Valid only while Editing.
func (e *Editor) SetTags(tags []string) {
	e.edit(func(d *model.Draft) { d.Tags = append([]string(nil), tags...) })
}

func (e *Editor) edit(fn func(d *model.Draft)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEditing {
		return
	}
	fn(&e.draft)
	e.dirty = true
}

// Save persists the draft. A no-op outside Editing (the state gate rejects
// duplicate submission). Local validation failure sets the error flag
// without contacting the store. On store failure the draft is kept intact
// and the editor returns to Editing for a user-initiated retry. On success
// the collection reload is awaited before leaving Saving, so the next list
// the user sees already reflects the mutation.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateEditing {
		e.mu.Unlock()
		return nil
	}
	if err := e.draft.Validate(); err != nil {
		e.validationErr = err.Error()
		e.mu.Unlock()
		return err
	}
	uid := e.userID()
	if uid == "" {
		e.validationErr = "not signed in"
		e.mu.Unlock()
		return &notSignedInError{}
	}
	e.validationErr = ""
	e.lastErr = ""
	record := e.draft.Record(uid, e.now())
	token := e.token
	e.state = StateSaving
	e.mu.Unlock()

	persisted, err := e.store.Upsert(ctx, record)
	if err != nil {
		e.mu.Lock()
		if token == e.token {
			e.state = StateEditing
			e.lastErr = err.Error()
		}
		e.mu.Unlock()
		return err
	}

	// Awaited so Saving is not left before the list reflects the mutation.
	// A failed reload keeps the previous set; the save itself succeeded.
	if rerr := e.coll.Reload(ctx); rerr != nil {
		e.log.Warn("post-save reload failed", zap.String("id", persisted.ID), zap.Error(rerr))
	}

	e.mu.Lock()
	if token == e.token {
		e.draft = model.Draft{}
		e.dirty = false
		e.state = StateIdle
	}
	e.mu.Unlock()
	return nil
}

// GenerateReflection asks the generator for reflection text and merges it
// into the draft. Ignored unless Editing with non-empty title and content;
// the Generating state rejects a second concurrent invocation. The result is
// merged only if the draft token still matches, so a completion for an
// abandoned draft is dropped silently. The call itself never fails the
// draft: whatever string comes back is accepted.
func (e *Editor) GenerateReflection(ctx context.Context) {
	e.mu.Lock()
	if e.state != StateEditing || e.draft.Title == "" || e.draft.Content == "" {
		e.mu.Unlock()
		return
	}
	token := e.token
	title, mood, content := e.draft.Title, e.draft.Mood, e.draft.Content
	e.state = StateGenerating
	e.mu.Unlock()

	text := e.gen.Generate(ctx, title, mood, content)

	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.token {
		// the draft this reflection belongs to is gone
		return
	}
	e.draft.AIReflection = text
	e.dirty = true
	e.state = StateEditing
}

// Delete removes an entry after the caller-supplied confirmation gate
// passes. A no-op while another mutating operation is in flight; the
// Deleting state holds the gate for the duration, so save and reflection
// intents are rejected until the delete resolves. On success the collection
// is reloaded and the editor goes Idle; on failure the error is surfaced and
// the current view is unchanged.
func (e *Editor) Delete(ctx context.Context, id string, confirm func() bool) error {
	if confirm == nil || !confirm() {
		return nil
	}

	e.mu.Lock()
	switch e.state {
	case StateIdle, StateEditing, StateViewing:
	default:
		e.mu.Unlock()
		return nil
	}
	prev := e.state
	token := e.token
	e.state = StateDeleting
	e.mu.Unlock()

	if err := e.store.Remove(ctx, id); err != nil {
		e.mu.Lock()
		if token == e.token {
			e.state = prev
			e.lastErr = err.Error()
		}
		e.mu.Unlock()
		return err
	}

	if rerr := e.coll.Reload(ctx); rerr != nil {
		e.log.Warn("post-delete reload failed", zap.String("id", id), zap.Error(rerr))
	}

	e.mu.Lock()
	if token == e.token {
		e.draft = model.Draft{}
		e.token++
		e.dirty = false
		e.lastErr = ""
		e.validationErr = ""
		e.state = StateIdle
	}
	e.mu.Unlock()
	return nil
}

type notSignedInError struct{}

func (*notSignedInError) Error() string { return "not signed in" }
