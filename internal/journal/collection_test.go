package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/errs"
	"github.com/inkwell-app/inkwell/internal/model"
)

func seededCollection(t *testing.T) (*Collection, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	fs.byID["e1"] = model.JournalEntry{
		ID: "e1", UserID: "u1", Title: "Morning run", Content: "Went jogging",
		Mood: model.MoodHappy, Tags: []string{"exercise"}, CreatedAt: 1000, UpdatedAt: 1000,
	}
	fs.byID["e2"] = model.JournalEntry{
		ID: "e2", UserID: "u1", Title: "Work stress", Content: "Deadline pressure",
		Mood: model.MoodStressed, Tags: []string{"office"}, CreatedAt: 2000, UpdatedAt: 2000,
	}
	c := NewCollection(fs, zap.NewNop())
	require.NoError(t, c.Reload(context.Background()))
	return c, fs
}

func TestCollection_ReloadOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	c, _ := seededCollection(t)
	got := c.Entries()
	require.Len(t, got, 2)
	require.Equal(t, "e2", got[0].ID)
	require.Equal(t, "e1", got[1].ID)
}

func TestCollection_ReloadFailureKeepsPreviousSet(t *testing.T) {
	t.Parallel()

	c, fs := seededCollection(t)
	fs.listErr = errs.NewStoreError("list", errs.ErrUnavailable, "down")

	require.Error(t, c.Reload(context.Background()))
	require.Len(t, c.Entries(), 2, "failed reload must not apply partial results")
}

func TestCollection_Search(t *testing.T) {
	t.Parallel()

	c, _ := seededCollection(t)

	require.Len(t, c.Search(""), 2)
	require.Len(t, c.Search("  "), 2)

	byTitle := c.Search("morning")
	require.Len(t, byTitle, 1)
	require.Equal(t, "e1", byTitle[0].ID)

	byContent := c.Search("DEADLINE")
	require.Len(t, byContent, 1)
	require.Equal(t, "e2", byContent[0].ID)

	byTag := c.Search("exercise")
	require.Len(t, byTag, 1)
	require.Equal(t, "e1", byTag[0].ID)

	require.Empty(t, c.Search("no such thing"))
}

func TestCollection_EntriesReturnsCopies(t *testing.T) {
	t.Parallel()

	c, _ := seededCollection(t)
	got := c.Entries()
	got[0].Title = "mutated"
	got[0].Tags[0] = "mutated"

	again := c.Entries()
	require.NotEqual(t, "mutated", again[0].Title)
	require.NotEqual(t, "mutated", again[0].Tags[0])
}

func TestCollection_Clear(t *testing.T) {
	t.Parallel()

	c, _ := seededCollection(t)
	c.Clear()
	require.Empty(t, c.Entries())
}
