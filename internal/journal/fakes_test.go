package journal

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid/v5"

	"github.com/inkwell-app/inkwell/internal/errs"
	"github.com/inkwell-app/inkwell/internal/model"
	"github.com/inkwell-app/inkwell/internal/store"
)

// fakeStore is an in-memory EntryStore with canned failures.
type fakeStore struct {
	mu   sync.Mutex
	byID map[string]model.JournalEntry

	listErr   error
	upsertErr error
	removeErr error

	// errorOnMissingRemove makes Remove of an absent id fail, mimicking a
	// backend without idempotent deletes.
	errorOnMissingRemove bool

	// blockUpsert/blockRemove, when set, hold the call in flight until the
	// channel is closed, so tests control when a mutation resolves.
	blockUpsert chan struct{}
	blockRemove chan struct{}

	listCalls   int
	upsertCalls int
	removeCalls int
}

var _ store.EntryStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]model.JournalEntry{}}
}

func (f *fakeStore) List(context.Context) ([]model.JournalEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.JournalEntry, 0, len(f.byID))
	for _, e := range f.byID {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (f *fakeStore) Upsert(_ context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	if f.blockUpsert != nil {
		<-f.blockUpsert
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return model.JournalEntry{}, f.upsertErr
	}
	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewV4()).String()
	}
	f.byID[entry.ID] = entry.Clone()
	return entry.Clone(), nil
}

func (f *fakeStore) Remove(_ context.Context, id string) error {
	if f.blockRemove != nil {
		<-f.blockRemove
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.byID[id]; !ok && f.errorOnMissingRemove {
		return errs.NewStoreError("remove", errs.ErrNotFound, "no such row")
	}
	delete(f.byID, id)
	return nil
}

// fakeGen is a ReflectionGenerator that can block until released, so tests
// control when an in-flight generation resolves.
type fakeGen struct {
	text    string
	release chan struct{} // nil means resolve immediately
	calls   int32
}

var _ ReflectionGenerator = (*fakeGen)(nil)

func (g *fakeGen) Generate(_ context.Context, _ string, _ model.Mood, _ string) string {
	atomic.AddInt32(&g.calls, 1)
	if g.release != nil {
		<-g.release
	}
	return g.text
}

func (g *fakeGen) callCount() int32 { return atomic.LoadInt32(&g.calls) }
