// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package share exports chat transcripts and uploads them as GitHub gists.
package share

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/polychat/internal/display"
	"github.com/jeranaias/polychat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORT
// =============================================================================

// Markdown converts a chat transcript to a Markdown document.
func Markdown(chat *model.Chat) ([]byte, error) {
	if chat == nil {
		return nil, errors.New("chat is nil")
	}
	if len(chat.Messages) == 0 {
		return nil, errors.New("chat has no messages")
	}

	var sb strings.Builder

	title := chat.Summary
	if title == "" {
		title = chat.FirstUserPreview(60)
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("- **Created**: %s\n", chat.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(chat.Messages)))
	if cost := chat.TotalCost(); cost > 0 {
		sb.WriteString(fmt.Sprintf("- **Cost**: %s\n", display.FormatCost(cost)))
	}
	if chat.SystemPrompt != "" {
		sb.WriteString(fmt.Sprintf("- **System prompt**: %s\n", chat.SystemPrompt))
	}
	sb.WriteString("\n---\n\n")

	for _, msg := range chat.Messages {
		switch msg.Role {
		case model.RoleUser:
			sb.WriteString("**User**")
		case model.RoleAssistant:
			sb.WriteString("**Assistant**")
			if msg.ModelID != "" {
				sb.WriteString(" (" + msg.ModelID + ")")
			}
		}
		sb.WriteString(":\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return []byte(sb.String()), nil
}

// =============================================================================
// GIST UPLOAD
// =============================================================================

const defaultGistAPI = "https://api.github.com"

// maxGistResponse caps the gist API response read.
const maxGistResponse = 1 << 20

// GistClient uploads transcripts to the GitHub gist API.
type GistClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewGistClient creates a gist client with the given GitHub token.
func NewGistClient(token string) *GistClient {
	return &GistClient{
		baseURL: defaultGistAPI,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (g *GistClient) WithBaseURL(base string) *GistClient {
	g.baseURL = strings.TrimRight(base, "/")
	return g
}

// ErrNoGitHubToken is returned when no token is configured for upload.
var ErrNoGitHubToken = errors.New("no GitHub token configured (set GITHUB_TOKEN)")

type gistFile struct {
	Content string `json:"content"`
}

type gistRequest struct {
	Description string              `json:"description"`
	Public      bool                `json:"public"`
	Files       map[string]gistFile `json:"files"`
}

type gistResponse struct {
	HTMLURL string `json:"html_url"`
	Message string `json:"message"`
}

// Upload creates a secret gist containing the chat transcript and returns
// its URL. Gists are unlisted, not private: anyone with the URL can read
// the transcript.
func (g *GistClient) Upload(ctx context.Context, chat *model.Chat) (string, error) {
	if g.token == "" {
		return "", ErrNoGitHubToken
	}

	content, err := Markdown(chat)
	if err != nil {
		return "", err
	}

	description := chat.Summary
	if description == "" {
		description = chat.FirstUserPreview(60)
	}

	body, err := json.Marshal(gistRequest{
		Description: description,
		Public:      false,
		Files: map[string]gistFile{
			chat.ID + ".md": {Content: string(content)},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/gists", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gist upload failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGistResponse))
	if err != nil {
		return "", err
	}

	var parsed gistResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("unexpected gist API response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		msg := parsed.Message
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return "", fmt.Errorf("gist API returned %d: %s", resp.StatusCode, msg)
	}
	if parsed.HTMLURL == "" {
		return "", errors.New("gist API response missing html_url")
	}
	return parsed.HTMLURL, nil
}
