// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/model"
	"github.com/jeranaias/polychat/internal/tools"
)

// =============================================================================
// OPENAI RESPONSES API FAMILY
// =============================================================================

// openAIBaseURL is the production endpoint for the OpenAI Responses API.
const openAIBaseURL = "https://api.openai.com/v1"

// ResponsesAdapter talks the OpenAI Responses API. Unlike the
// chat-completions family it supports a background mode: requests submitted
// with background+store return immediately with an id that is polled until
// a terminal status (see the background package).
type ResponsesAdapter struct {
	baseURL string
	apiKey  string
}

// NewResponsesAdapter creates the adapter for the OpenAI Responses API.
func NewResponsesAdapter(creds Credentials, baseURL string) (*ResponsesAdapter, error) {
	key, err := requireKey(creds, catalog.ProviderOpenAI)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &ResponsesAdapter{baseURL: baseURL, apiKey: key}, nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type riInputItem struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type riTool struct {
	Type string `json:"type"`
}

type riReasoning struct {
	Effort string `json:"effort"`
}

type riRequest struct {
	Model        string        `json:"model"`
	Input        []riInputItem `json:"input"`
	Instructions string        `json:"instructions,omitempty"`
	Tools        []riTool      `json:"tools,omitempty"`
	Reasoning    *riReasoning  `json:"reasoning,omitempty"`
	Background   bool          `json:"background,omitempty"`
	Store        bool          `json:"store,omitempty"`
}

type riOutputItem struct {
	Type    string `json:"type"` // "message", "reasoning", "web_search_call", ...
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Summary []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"summary"`
}

type riResponse struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	OutputText string         `json:"output_text"`
	Output     []riOutputItem `json:"output"`
	Usage      struct {
		InputTokens        uint64 `json:"input_tokens"`
		OutputTokens       uint64 `json:"output_tokens"`
		InputTokensDetails struct {
			CachedTokens uint64 `json:"cached_tokens"`
		} `json:"input_tokens_details"`
	} `json:"usage"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
}

// =============================================================================
// REQUEST BUILDING
// =============================================================================

// buildRequest maps the provider-agnostic request onto the Responses wire
// shape. Web search and code execution are declared tool types, not prompt
// instructions; thinking maps to the reasoning effort parameter instead of
// an explicit token budget.
func (a *ResponsesAdapter) buildRequest(req ChatRequest, background bool) riRequest {
	wire := riRequest{
		Model:        req.Model.Key,
		Instructions: req.SystemPrompt,
		Background:   background,
		Store:        background,
	}

	for _, m := range req.History {
		wire.Input = append(wire.Input, riInputItem{Role: m.Role.String(), Content: m.Content})
	}

	if req.ImageURL != "" {
		wire.Input = append(wire.Input, riInputItem{
			Role: "user",
			Content: []map[string]string{
				{"type": "input_text", "text": req.Input},
				{"type": "input_image", "image_url": req.ImageURL},
			},
		})
	} else {
		wire.Input = append(wire.Input, riInputItem{Role: "user", Content: req.Input})
	}

	for _, tool := range req.Tools {
		switch tool {
		case tools.ToolSearch:
			wire.Tools = append(wire.Tools, riTool{Type: "web_search"})
		case tools.ToolCode:
			wire.Tools = append(wire.Tools, riTool{Type: "code_interpreter"})
		case tools.ToolThink:
			wire.Reasoning = &riReasoning{Effort: "medium"}
		case tools.ToolThinkHigh:
			wire.Reasoning = &riReasoning{Effort: "high"}
		case tools.ToolNoThink:
			wire.Reasoning = &riReasoning{Effort: "minimal"}
		}
	}

	return wire
}

// =============================================================================
// SYNCHRONOUS SEND
// =============================================================================

// Send implements Adapter.
func (a *ResponsesAdapter) Send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	wire, err := a.post(ctx, a.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	return normalizeResponses(wire)
}

// =============================================================================
// BACKGROUND OPERATIONS
// =============================================================================

// CreateBackground submits a request in background mode and returns the
// provider-side task immediately, without blocking on completion.
func (a *ResponsesAdapter) CreateBackground(ctx context.Context, req ChatRequest) (*model.BackgroundTask, error) {
	wire, err := a.post(ctx, a.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	return &model.BackgroundTask{
		ID:        wire.ID,
		Status:    model.TaskStatus(wire.Status),
		Provider:  catalog.ProviderOpenAI.String(),
		ModelID:   req.Model.ID,
		StartedAt: time.Now(),
	}, nil
}

// Poll performs a single non-blocking status check with no side effects.
func (a *ResponsesAdapter) Poll(ctx context.Context, id string) (model.TaskStatus, error) {
	wire, err := a.get(ctx, id)
	if err != nil {
		return "", err
	}
	return model.TaskStatus(wire.Status), nil
}

// Fetch retrieves a completed background response and normalizes it through
// the same shape as a synchronous call.
func (a *ResponsesAdapter) Fetch(ctx context.Context, id string) (*ChatResponse, error) {
	wire, err := a.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return normalizeResponses(wire)
}

// Cancel asks the provider to cancel an outstanding background response.
// The local task record is cleared by the caller regardless of whether the
// provider confirms before the command exits.
func (a *ResponsesAdapter) Cancel(ctx context.Context, id string) error {
	url := a.baseURL + "/responses/" + id + "/cancel"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	a.setHeaders(httpReq)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("openai cancel failed: %w", err)
	}
	defer resp.Body.Close()
	logCall(http.MethodPost, "/responses/"+id+"/cancel", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		raw, _ := readBody(resp)
		return &RequestError{Provider: catalog.ProviderOpenAI, Status: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

func (a *ResponsesAdapter) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (a *ResponsesAdapter) post(ctx context.Context, wire riRequest) (*riResponse, error) {
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	a.setHeaders(httpReq)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()
	logCall(http.MethodPost, "/responses", resp.StatusCode, time.Since(start))

	return decodeResponses(resp)
}

func (a *ResponsesAdapter) get(ctx context.Context, id string) (*riResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/responses/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	a.setHeaders(httpReq)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai poll failed: %w", err)
	}
	defer resp.Body.Close()
	logCall(http.MethodGet, "/responses/"+id, resp.StatusCode, time.Since(start))

	return decodeResponses(resp)
}

func decodeResponses(resp *http.Response) (*riResponse, error) {
	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Provider: catalog.ProviderOpenAI, Status: resp.StatusCode, Body: string(raw)}
	}

	var wire riResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse openai response: %w", err)
	}
	return &wire, nil
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// normalizeResponses maps a Responses wire payload into the canonical
// shape. Text comes from the aggregated output_text when present, otherwise
// from walking message output items. Reasoning summaries and web search
// call counts come from their output item types.
func normalizeResponses(wire *riResponse) (*ChatResponse, error) {
	content := wire.OutputText
	var reasoning string
	searchCalls := 0

	for _, item := range wire.Output {
		switch item.Type {
		case "message":
			if content == "" {
				for _, c := range item.Content {
					if c.Type == "output_text" {
						content += c.Text
					}
				}
			}
		case "reasoning":
			for _, s := range item.Summary {
				if s.Type == "summary_text" {
					if reasoning != "" {
						reasoning += "\n\n"
					}
					reasoning += s.Text
				}
			}
		case "web_search_call":
			searchCalls++
		}
	}

	if content == "" {
		return nil, ErrNoResponseContent
	}

	stopReason := wire.Status
	if wire.IncompleteDetails != nil {
		stopReason = wire.IncompleteDetails.Reason
	}

	return &ChatResponse{
		Content:     content,
		Reasoning:   reasoning,
		StopReason:  stopReason,
		SearchCalls: searchCalls,
		Tokens: model.TokenCounts{
			Input:         wire.Usage.InputTokens,
			Output:        wire.Usage.OutputTokens,
			InputCacheHit: wire.Usage.InputTokensDetails.CachedTokens,
		},
	}, nil
}
