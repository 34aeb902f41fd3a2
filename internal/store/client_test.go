package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/convert"
	"github.com/inkwell-app/inkwell/internal/errs"
	"github.com/inkwell-app/inkwell/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "anon-key", func() string { return "access-token" }, 5*time.Second, zap.NewNop())
	return c, srv
}

func TestClient_List_OK(t *testing.T) {
	t.Parallel()

	rows := []convert.EntryRow{
		{
			ID: "e2", UserID: "u1", Title: "B", Content: "b", Mood: "calm",
			Tags:      []string{"x"},
			CreatedAt: "2025-01-02T00:00:00.000Z", UpdatedAt: "2025-01-02T00:00:00.000Z",
		},
		{
			ID: "e1", UserID: "u1", Title: "A", Content: "a", Mood: "happy",
			CreatedAt: "2025-01-01T00:00:00.000Z", UpdatedAt: "2025-01-01T00:00:00.000Z",
		},
	}

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "anon-key", r.Header.Get("apikey"))
		require.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		require.Equal(t, "*", r.URL.Query().Get("select"))
		require.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		_ = json.NewEncoder(w).Encode(rows)
	})

	got, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "e2", got[0].ID)
	require.Equal(t, model.MoodCalm, got[0].Mood)
	require.GreaterOrEqual(t, got[0].CreatedAt, got[1].CreatedAt)
}

func TestClient_List_Unauthorized(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"JWT expired"}`))
	})

	_, err := c.List(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	var se *errs.StoreError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "JWT expired", se.Message)
}

func TestClient_List_TransportFailure(t *testing.T) {
	t.Parallel()

	c := NewClient("http://127.0.0.1:1", "k", func() string { return "" }, time.Second, zap.NewNop())
	_, err := c.List(context.Background())
	require.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestClient_Upsert_GeneratesIDAndStamps(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1735689600123)
	var sent convert.EntryRow

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.Header.Get("Prefer"), "return=representation")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		_ = json.NewEncoder(w).Encode([]convert.EntryRow{sent})
	})
	c.now = func() time.Time { return now }

	got, err := c.Upsert(context.Background(), model.JournalEntry{
		UserID:  "u1",
		Title:   "Morning",
		Content: "Felt good",
		Mood:    model.MoodHappy,
		Tags:    []string{},
	})
	require.NoError(t, err)

	_, perr := uuid.FromString(got.ID)
	require.NoError(t, perr, "id must be a client-generated uuid")
	require.Equal(t, sent.ID, got.ID)
	require.Equal(t, now.UnixMilli(), got.CreatedAt)
	require.Equal(t, now.UnixMilli(), got.UpdatedAt)
}

func TestClient_Upsert_PreservesCreatedAt(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(2000)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var row convert.EntryRow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		_ = json.NewEncoder(w).Encode([]convert.EntryRow{row})
	})
	c.now = func() time.Time { return now }

	got, err := c.Upsert(context.Background(), model.JournalEntry{
		ID: "e1", UserID: "u1", Title: "t", Content: "c",
		Mood: model.MoodNeutral, CreatedAt: 1000,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1000), got.CreatedAt)
	require.Equal(t, int64(2000), got.UpdatedAt)
	require.GreaterOrEqual(t, got.UpdatedAt, got.CreatedAt)
}

func TestClient_Upsert_RequiresUserID(t *testing.T) {
	t.Parallel()

	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	_, err := c.Upsert(context.Background(), model.JournalEntry{Title: "t", Content: "c"})
	require.ErrorIs(t, err, errs.ErrConstraint)
	require.Zero(t, calls, "backend must not be called without a user id")
}

func TestClient_Upsert_ConstraintViolation(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"duplicate key"}`))
	})

	_, err := c.Upsert(context.Background(), model.JournalEntry{
		ID: "e1", UserID: "u1", Title: "t", Content: "c", Mood: model.MoodNeutral,
	})
	require.ErrorIs(t, err, errs.ErrConstraint)
}

func TestClient_Remove(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "eq.e1", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Remove(context.Background(), "e1"))
}

func TestClient_Remove_ErrorMapped(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.Remove(context.Background(), "e1")
	require.ErrorIs(t, err, errs.ErrUnavailable)
}
