// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/model"
	"github.com/jeranaias/polychat/internal/tools"
)

func newGeminiServer(t *testing.T, body string, gotReq *gemRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if gotReq != nil {
			if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

const gemOKBody = `{
	"candidates": [{
		"content": {"parts": [{"text": "hello"}]},
		"finishReason": "STOP"
	}],
	"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5}
}`

func TestGemini_AssistantRoleIsModel(t *testing.T) {
	var got gemRequest
	server := newGeminiServer(t, gemOKBody, &got)
	defer server.Close()

	adapter, _ := NewGeminiAdapter(allCreds, server.URL)
	m, _ := catalog.Resolve("gemini-2.5-flash")

	history := []model.ChatMessage{
		model.NewUserMessage("earlier question", ""),
		{Role: model.RoleAssistant, Content: "earlier answer"},
	}

	_, err := adapter.Send(context.Background(), ChatRequest{
		SystemPrompt: "be kind",
		History:      history,
		Input:        "follow up",
		Model:        m,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Contents) != 3 {
		t.Fatalf("sent %d contents, want 3", len(got.Contents))
	}
	if got.Contents[1].Role != "model" {
		t.Errorf("assistant turn role = %q, want %q", got.Contents[1].Role, "model")
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be kind" {
		t.Error("system instruction not carried in its dedicated field")
	}
}

func TestGemini_ThinkingConfigMapping(t *testing.T) {
	tests := []struct {
		name       string
		tool       tools.ToolID
		wantBudget int
	}{
		{"think sets budget", tools.ToolThink, geminiThinkBudget},
		{"no-think zeroes budget", tools.ToolNoThink, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got gemRequest
			server := newGeminiServer(t, gemOKBody, &got)
			defer server.Close()

			adapter, _ := NewGeminiAdapter(allCreds, server.URL)
			m, _ := catalog.Resolve("gemini-2.5-pro")

			_, err := adapter.Send(context.Background(), ChatRequest{
				Input: "q",
				Model: m,
				Tools: []tools.ToolID{tc.tool},
			})
			if err != nil {
				t.Fatal(err)
			}

			if got.GenerationConfig == nil || got.GenerationConfig.ThinkingConfig == nil {
				t.Fatal("thinkingConfig not set")
			}
			if got.GenerationConfig.ThinkingConfig.ThinkingBudget != tc.wantBudget {
				t.Errorf("budget = %d, want %d", got.GenerationConfig.ThinkingConfig.ThinkingBudget, tc.wantBudget)
			}
		})
	}
}

func TestGemini_ThoughtPartsBecomeReasoning(t *testing.T) {
	server := newGeminiServer(t, `{
		"candidates": [{
			"content": {"parts": [
				{"text": "thinking it through", "thought": true},
				{"text": "the answer"}
			]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "thoughtsTokenCount": 40}
	}`, nil)
	defer server.Close()

	adapter, _ := NewGeminiAdapter(allCreds, server.URL)
	m, _ := catalog.Resolve("gemini-2.5-pro")

	resp, err := adapter.Send(context.Background(), ChatRequest{Input: "q", Model: m})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Content != "the answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Reasoning != "thinking it through" {
		t.Errorf("reasoning = %q", resp.Reasoning)
	}
	// Thinking tokens count toward billed output.
	if resp.Tokens.Output != 45 {
		t.Errorf("output tokens = %d, want 45 (5 candidates + 40 thoughts)", resp.Tokens.Output)
	}
}

func TestGemini_GroundingCitationsAppended(t *testing.T) {
	server := newGeminiServer(t, `{
		"candidates": [{
			"content": {"parts": [{"text": "Grounded answer."}]},
			"finishReason": "STOP",
			"groundingMetadata": {
				"webSearchQueries": ["go 1.24 release date"],
				"groundingChunks": [
					{"web": {"uri": "https://go.dev/blog", "title": "Go Blog"}},
					{"web": {"uri": "https://en.wikipedia.org/wiki/Go", "title": "Go (programming language)"}}
				]
			}
		}],
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5}
	}`, nil)
	defer server.Close()

	adapter, _ := NewGeminiAdapter(allCreds, server.URL)
	m, _ := catalog.Resolve("gemini-2.5-flash")

	resp, err := adapter.Send(context.Background(), ChatRequest{Input: "q", Model: m})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(resp.Content, "Sources:") {
		t.Errorf("content missing source list:\n%s", resp.Content)
	}
	if !strings.Contains(resp.Content, "https://go.dev/blog") {
		t.Errorf("content missing citation URL:\n%s", resp.Content)
	}
	if resp.SearchCalls != 1 {
		t.Errorf("search calls = %d, want 1", resp.SearchCalls)
	}
}

func TestGemini_CachedContentTokens(t *testing.T) {
	server := newGeminiServer(t, `{
		"candidates": [{
			"content": {"parts": [{"text": "ok"}]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {
			"promptTokenCount": 1000,
			"candidatesTokenCount": 5,
			"cachedContentTokenCount": 700
		}
	}`, nil)
	defer server.Close()

	adapter, _ := NewGeminiAdapter(allCreds, server.URL)
	m, _ := catalog.Resolve("gemini-2.5-flash")

	resp, err := adapter.Send(context.Background(), ChatRequest{Input: "q", Model: m})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Tokens.InputCacheHit != 700 {
		t.Errorf("cache hit = %d, want 700", resp.Tokens.InputCacheHit)
	}
}
