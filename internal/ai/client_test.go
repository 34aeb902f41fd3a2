package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/model"
)

func newTestGenerator(t *testing.T, h http.HandlerFunc) (*Generator, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	g := NewGenerator("test-key", zap.NewNop())
	g.baseURL = srv.URL
	return g, &calls
}

func TestGenerate_OK(t *testing.T) {
	t.Parallel()

	g, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.Contains(t, r.URL.Path, ":generateContent")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		s := string(body)
		require.Contains(t, s, "Entry Title: Morning")
		require.Contains(t, s, "Mood: happy")
		require.Contains(t, s, `"thinkingBudget":0`)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"A gentle note."}]}}]}`))
	})

	got := g.Generate(context.Background(), "Morning", model.MoodHappy, "Felt good")
	require.Equal(t, "A gentle note.", got)
}

func TestGenerate_NoCredentialShortCircuits(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	g := NewGenerator("", zap.NewNop())
	g.baseURL = srv.URL

	got := g.Generate(context.Background(), "t", model.MoodCalm, "c")
	require.Equal(t, msgNoCredential, got)
	require.Zero(t, calls, "no network call without a credential")
}

func TestGenerate_UpstreamErrorReturnsPlaceholder(t *testing.T) {
	t.Parallel()

	g, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	got := g.Generate(context.Background(), "t", model.MoodSad, "c")
	require.Equal(t, msgUnreachable, got)
}

func TestGenerate_NetworkFailureReturnsPlaceholder(t *testing.T) {
	t.Parallel()

	g := NewGenerator("k", zap.NewNop())
	g.baseURL = "http://127.0.0.1:1"

	got := g.Generate(context.Background(), "t", model.MoodStressed, "c")
	require.Equal(t, msgUnreachable, got)
}

func TestGenerate_EmptyResponseReturnsPlaceholder(t *testing.T) {
	t.Parallel()

	g, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	got := g.Generate(context.Background(), "t", model.MoodInspired, "c")
	require.Equal(t, msgEmpty, got)
}
