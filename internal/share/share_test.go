// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package share

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/polychat/internal/model"
)

func sampleChat() *model.Chat {
	chat := model.NewChat("be terse")
	chat.Summary = "goroutine basics"
	chat.Append(model.NewUserMessage("what is a goroutine?", ""))
	chat.Append(model.NewAssistantMessage("gpt-5", "A lightweight thread.", "",
		model.TokenCounts{Input: 10, Output: 5}, "stop", 0.001, 900))
	return chat
}

func TestMarkdownTranscript(t *testing.T) {
	out, err := Markdown(sampleChat())
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	text := string(out)

	for _, want := range []string{
		"# goroutine basics",
		"**System prompt**: be terse",
		"**User**:",
		"**Assistant** (gpt-5):",
		"A lightweight thread.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("transcript missing %q:\n%s", want, text)
		}
	}
}

func TestMarkdownEmptyChat(t *testing.T) {
	if _, err := Markdown(model.NewChat("")); err == nil {
		t.Error("empty chat should not export")
	}
	if _, err := Markdown(nil); err == nil {
		t.Error("nil chat should not export")
	}
}

func TestUploadCreatesSecretGist(t *testing.T) {
	var got gistRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gists" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"html_url": "https://gist.github.com/u/abc123"}`))
	}))
	defer server.Close()

	chat := sampleChat()
	url, err := NewGistClient("ghp_test").WithBaseURL(server.URL).Upload(context.Background(), chat)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://gist.github.com/u/abc123" {
		t.Errorf("url = %q", url)
	}
	if auth != "Bearer ghp_test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Public {
		t.Error("gists must be created secret, not public")
	}
	if got.Description != "goroutine basics" {
		t.Errorf("description = %q", got.Description)
	}
	file, ok := got.Files[chat.ID+".md"]
	if !ok {
		t.Fatalf("files = %v, want %s.md", got.Files, chat.ID)
	}
	if !strings.Contains(file.Content, "A lightweight thread.") {
		t.Error("gist content missing transcript")
	}
}

func TestUploadWithoutToken(t *testing.T) {
	_, err := NewGistClient("").Upload(context.Background(), sampleChat())
	if !errors.Is(err, ErrNoGitHubToken) {
		t.Errorf("error = %v, want ErrNoGitHubToken", err)
	}
}

func TestUploadAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Bad credentials"}`))
	}))
	defer server.Close()

	_, err := NewGistClient("bad").WithBaseURL(server.URL).Upload(context.Background(), sampleChat())
	if err == nil || !strings.Contains(err.Error(), "Bad credentials") {
		t.Errorf("error = %v, want API message surfaced", err)
	}
}
