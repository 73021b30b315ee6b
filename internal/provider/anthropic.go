// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/model"
	"github.com/jeranaias/polychat/internal/tools"
)

// =============================================================================
// ANTHROPIC MESSAGES FAMILY
// =============================================================================

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"

	// codeExecutionBeta gates the server-side code execution tool.
	codeExecutionBeta = "code-execution-2025-05-22"

	// defaultMaxTokens is the response budget for calls without thinking.
	defaultMaxTokens = 8192

	// Thinking budgets for the two supported effort levels. max_tokens must
	// exceed the thinking budget, so it is raised alongside.
	thinkBudget     = 8192
	thinkHighBudget = 32768
)

// AnthropicAdapter talks the Anthropic Messages API (beta surface).
type AnthropicAdapter struct {
	baseURL string
	apiKey  string
}

// NewAnthropicAdapter creates the adapter for the Anthropic Messages API.
func NewAnthropicAdapter(creds Credentials, baseURL string) (*AnthropicAdapter, error) {
	key, err := requireKey(creds, catalog.ProviderAnthropic)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicAdapter{baseURL: baseURL, apiKey: key}, nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type antBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// Image blocks (user messages)
	Source *antImageSource `json:"source,omitempty"`
}

type antImageSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type antMessage struct {
	Role    string     `json:"role"`
	Content []antBlock `json:"content"`
}

type antThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type antTool struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Max  int    `json:"max_uses,omitempty"`
}

type antRequest struct {
	Model     string       `json:"model"`
	System    string       `json:"system,omitempty"`
	Messages  []antMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens"`
	Thinking  *antThinking `json:"thinking,omitempty"`
	Tools     []antTool    `json:"tools,omitempty"`
	Betas     []string     `json:"betas,omitempty"`
}

// antResponseBlock covers every content block kind the adapter consumes.
// Tool use and tool results are structured blocks, not inline text, and the
// fields present depend on the block type.
type antResponseBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Thinking string `json:"thinking"`

	// server_tool_use
	Name  string `json:"name"`
	Input struct {
		Query string `json:"query"`
		Code  string `json:"code"`
	} `json:"input"`

	// *_tool_result: content shape differs per result kind, so it is
	// decoded per kind from the raw message.
	Content json.RawMessage `json:"content"`
}

type antSearchResult struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type antCodeResult struct {
	Type       string `json:"type"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code"`
	Content    []struct {
		FileID string `json:"file_id"`
	} `json:"content"`
}

type antResponse struct {
	Content    []antResponseBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      struct {
		InputTokens              uint64 `json:"input_tokens"`
		CacheReadInputTokens     uint64 `json:"cache_read_input_tokens"`
		CacheCreationInputTokens uint64 `json:"cache_creation_input_tokens"`
		OutputTokens             uint64 `json:"output_tokens"`
	} `json:"usage"`
}

// =============================================================================
// SEND
// =============================================================================

// Send implements Adapter. The system prompt is a dedicated request field,
// not a message; thinking is a structured budgeted field and comes back as
// a separate block type rather than inline text.
func (a *AnthropicAdapter) Send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	wire := antRequest{
		Model:     req.Model.Key,
		System:    req.SystemPrompt,
		MaxTokens: defaultMaxTokens,
	}

	for _, m := range req.History {
		wire.Messages = append(wire.Messages, antMessage{
			Role:    m.Role.String(),
			Content: []antBlock{{Type: "text", Text: m.Content}},
		})
	}

	userBlocks := []antBlock{{Type: "text", Text: req.Input}}
	if req.ImageURL != "" {
		userBlocks = append(userBlocks, antBlock{
			Type:   "image",
			Source: &antImageSource{Type: "url", URL: req.ImageURL},
		})
	}
	wire.Messages = append(wire.Messages, antMessage{Role: "user", Content: userBlocks})

	for _, tool := range req.Tools {
		switch tool {
		case tools.ToolSearch:
			wire.Tools = append(wire.Tools, antTool{Type: "web_search_20250305", Name: "web_search", Max: 5})
		case tools.ToolCode:
			wire.Tools = append(wire.Tools, antTool{Type: "code_execution_20250522", Name: "code_execution"})
			wire.Betas = append(wire.Betas, codeExecutionBeta)
		case tools.ToolThink:
			wire.Thinking = &antThinking{Type: "enabled", BudgetTokens: thinkBudget}
			wire.MaxTokens = thinkBudget + defaultMaxTokens
		case tools.ToolThinkHigh:
			wire.Thinking = &antThinking{Type: "enabled", BudgetTokens: thinkHighBudget}
			wire.MaxTokens = thinkHighBudget + defaultMaxTokens
		}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("Content-Type", "application/json")
	if len(wire.Betas) > 0 {
		httpReq.Header.Set("anthropic-beta", strings.Join(wire.Betas, ","))
	}

	start := time.Now()
	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()
	logCall(http.MethodPost, "/messages", resp.StatusCode, time.Since(start))

	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Provider: catalog.ProviderAnthropic, Status: resp.StatusCode, Body: string(raw)}
	}

	var wireResp antResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return nil, fmt.Errorf("failed to parse anthropic response: %w", err)
	}

	return normalizeAnthropic(&wireResp)
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// normalizeAnthropic walks the structured content blocks, pulling text and
// thinking into their canonical fields and rendering tool activity into the
// flat content string. Total input cost is the sum of cache-miss,
// cache-read, and cache-write input tokens; the cache hit count is the
// cache-read portion.
func normalizeAnthropic(wire *antResponse) (*ChatResponse, error) {
	var content strings.Builder
	var reasoning strings.Builder
	searchCalls := 0

	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)

		case "thinking":
			if reasoning.Len() > 0 {
				reasoning.WriteString("\n\n")
			}
			reasoning.WriteString(block.Thinking)

		case "server_tool_use":
			switch block.Name {
			case "web_search":
				searchCalls++
				fmt.Fprintf(&content, "\n[searching: %s]\n", block.Input.Query)
			case "code_execution":
				fmt.Fprintf(&content, "\n```\n%s\n```\n", block.Input.Code)
			}

		case "web_search_tool_result":
			var results []antSearchResult
			if err := json.Unmarshal(block.Content, &results); err == nil {
				for _, r := range results {
					if r.Type == "web_search_result" {
						fmt.Fprintf(&content, "- %s (%s)\n", r.Title, r.URL)
					}
				}
			}

		case "code_execution_tool_result":
			var result antCodeResult
			if err := json.Unmarshal(block.Content, &result); err == nil {
				if result.Stdout != "" {
					fmt.Fprintf(&content, "stdout:\n%s\n", result.Stdout)
				}
				if result.Stderr != "" {
					fmt.Fprintf(&content, "stderr:\n%s\n", result.Stderr)
				}
				fmt.Fprintf(&content, "(exit code %d)\n", result.ReturnCode)
				for _, f := range result.Content {
					fmt.Fprintf(&content, "file: %s\n", f.FileID)
				}
			}
		}
	}

	text := strings.TrimSpace(content.String())
	trace := strings.TrimSpace(reasoning.String())
	if text == "" && trace == "" {
		return nil, ErrNoResponseContent
	}

	u := wire.Usage
	return &ChatResponse{
		Content:     text,
		Reasoning:   trace,
		StopReason:  wire.StopReason,
		SearchCalls: searchCalls,
		Tokens: model.TokenCounts{
			Input:         u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens,
			Output:        u.OutputTokens,
			InputCacheHit: u.CacheReadInputTokens,
		},
	}, nil
}
