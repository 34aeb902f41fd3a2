// Package ai wraps the text-generation service used for entry reflections.
// Reflection is best-effort enrichment: Generate never returns an error,
// every failure mode collapses to a displayable placeholder string.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/model"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-3-flash-preview"

	// Placeholder results for the degraded modes.
	msgNoCredential = "AI insights are unavailable (API key missing)."
	msgUnreachable  = "Unable to connect to AI service."
	msgEmpty        = "Could not generate a reflection at this time."
)

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	ThinkingConfig thinkingConfig `json:"thinkingConfig"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generator produces a short reflection for a journal entry.
type Generator struct {
	apiKey  string
	baseURL string
	model   string
	httpc   *http.Client
	log     *zap.Logger
}

// NewGenerator constructs a Generator. An empty apiKey puts it permanently
// in degraded mode: no network call is ever made.
func NewGenerator(apiKey string, log *zap.Logger) *Generator {
	return &Generator{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

// Generate returns a reflection for the given entry fields. It never fails:
// upstream errors, timeouts and empty responses all resolve to one of the
// placeholder strings.
func (g *Generator) Generate(ctx context.Context, title string, mood model.Mood, contentText string) string {
	if g.apiKey == "" {
		return msgNoCredential
	}

	prompt := fmt.Sprintf(`You are a supportive, wise, and empathetic journaling assistant.
Read the following journal entry and provide a brief, thoughtful reflection or insight.
It should be encouraging, stoic, or offer a new perspective.
Keep it under 100 words.

Entry Title: %s
Mood: %s
Content: %s`, title, mood, contentText)

	// Thinking budget zero: reflections favor latency over deliberation.
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		Config:   genConfig{ThinkingConfig: thinkingConfig{ThinkingBudget: 0}},
	})
	if err != nil {
		g.log.Warn("reflection request marshal failed", zap.Error(err))
		return msgUnreachable
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return msgUnreachable
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpc.Do(req)
	if err != nil {
		g.log.Warn("reflection call failed", zap.Error(err))
		return msgUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.log.Warn("reflection call rejected", zap.Int("status", resp.StatusCode))
		return msgUnreachable
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		g.log.Warn("reflection decode failed", zap.Error(err))
		return msgUnreachable
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return msgEmpty
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return msgEmpty
	}
	return text
}
