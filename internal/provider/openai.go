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
)

// =============================================================================
// OPENAI-COMPATIBLE CHAT COMPLETIONS FAMILY
// =============================================================================

// Default endpoints for the chat-completions vendors.
const (
	deepSeekBaseURL = "https://api.deepseek.com/v1"
	xaiBaseURL      = "https://api.x.ai/v1"
)

// ChatCompletionsAdapter talks the OpenAI chat-completions wire protocol.
// Several distinct providers speak this protocol behind different base URLs
// and keys; one adapter type serves them all, parameterized per vendor.
type ChatCompletionsAdapter struct {
	provider catalog.Provider
	baseURL  string
	apiKey   string

	// addReasoningTokens compensates for vendors that exclude reasoning
	// tokens from completion_tokens (DeepSeek): the nested usage detail is
	// added back so Output reflects what was actually billed.
	addReasoningTokens bool
}

// NewDeepSeekAdapter creates the adapter for the DeepSeek API.
func NewDeepSeekAdapter(creds Credentials, baseURL string) (*ChatCompletionsAdapter, error) {
	key, err := requireKey(creds, catalog.ProviderDeepSeek)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = deepSeekBaseURL
	}
	return &ChatCompletionsAdapter{
		provider:           catalog.ProviderDeepSeek,
		baseURL:            baseURL,
		apiKey:             key,
		addReasoningTokens: true,
	}, nil
}

// NewXAIAdapter creates the adapter for the xAI API.
func NewXAIAdapter(creds Credentials, baseURL string) (*ChatCompletionsAdapter, error) {
	key, err := requireKey(creds, catalog.ProviderXAI)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = xaiBaseURL
	}
	return &ChatCompletionsAdapter{
		provider: catalog.ProviderXAI,
		baseURL:  baseURL,
		apiKey:   key,
	}, nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type ccMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ccRequest struct {
	Model    string      `json:"model"`
	Messages []ccMessage `json:"messages"`
}

type ccResponse struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens        uint64 `json:"prompt_tokens"`
		CompletionTokens    uint64 `json:"completion_tokens"`
		PromptTokensDetails struct {
			CachedTokens uint64 `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
		CompletionTokensDetails struct {
			ReasoningTokens uint64 `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	} `json:"usage"`
}

// =============================================================================
// SEND
// =============================================================================

// Send implements Adapter. The system prompt becomes a leading system-role
// message; reasoning arrives either in the dedicated reasoning_content field
// or inline between <think> markers, and is normalized into Reasoning either
// way.
func (a *ChatCompletionsAdapter) Send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	wire := ccRequest{Model: req.Model.Key}

	if req.SystemPrompt != "" {
		wire.Messages = append(wire.Messages, ccMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		wire.Messages = append(wire.Messages, ccMessage{Role: m.Role.String(), Content: m.Content})
	}
	wire.Messages = append(wire.Messages, ccMessage{Role: "user", Content: req.Input})

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := a.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", a.provider, err)
	}
	defer resp.Body.Close()
	logCall(http.MethodPost, "/chat/completions", resp.StatusCode, time.Since(start))

	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Provider: a.provider, Status: resp.StatusCode, Body: string(raw)}
	}

	var wireResp ccResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", a.provider, err)
	}

	return a.normalize(&wireResp)
}

// normalize maps the wire response into the canonical shape.
func (a *ChatCompletionsAdapter) normalize(wire *ccResponse) (*ChatResponse, error) {
	if len(wire.Choices) == 0 {
		return nil, ErrNoResponseContent
	}

	choice := wire.Choices[0]
	content := choice.Message.Content
	reasoning := choice.Message.ReasoningContent

	if reasoning == "" {
		content, reasoning = extractInlineThink(content)
	}

	if content == "" && reasoning == "" {
		return nil, ErrNoResponseContent
	}

	output := wire.Usage.CompletionTokens
	if a.addReasoningTokens {
		output += wire.Usage.CompletionTokensDetails.ReasoningTokens
	}

	return &ChatResponse{
		Content:    content,
		Reasoning:  reasoning,
		StopReason: choice.FinishReason,
		Tokens: model.TokenCounts{
			Input:         wire.Usage.PromptTokens,
			Output:        output,
			InputCacheHit: wire.Usage.PromptTokensDetails.CachedTokens,
		},
	}, nil
}
