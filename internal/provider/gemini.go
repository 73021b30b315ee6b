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
// GOOGLE GENAI FAMILY
// =============================================================================

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// geminiThinkBudget is the thinking token budget for the "think" tool.
	// "no-think" sets the budget to zero, disabling thinking on models that
	// reason by default.
	geminiThinkBudget = 8192
)

// GeminiAdapter talks the Google GenAI generateContent API.
type GeminiAdapter struct {
	baseURL string
	apiKey  string
}

// NewGeminiAdapter creates the adapter for the Google GenAI API.
func NewGeminiAdapter(creds Credentials, baseURL string) (*GeminiAdapter, error) {
	key, err := requireKey(creds, catalog.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &GeminiAdapter{baseURL: baseURL, apiKey: key}, nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type gemPart struct {
	Text     string       `json:"text,omitempty"`
	Thought  bool         `json:"thought,omitempty"`
	FileData *gemFileData `json:"fileData,omitempty"`
}

type gemFileData struct {
	FileURI string `json:"fileUri"`
}

type gemContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []gemPart `json:"parts"`
}

type gemThinkingConfig struct {
	ThinkingBudget  int  `json:"thinkingBudget"`
	IncludeThoughts bool `json:"includeThoughts"`
}

type gemGenerationConfig struct {
	ThinkingConfig *gemThinkingConfig `json:"thinkingConfig,omitempty"`
}

type gemTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type gemRequest struct {
	Contents          []gemContent         `json:"contents"`
	SystemInstruction *gemContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *gemGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []gemTool            `json:"tools,omitempty"`
}

type gemResponse struct {
	Candidates []struct {
		Content struct {
			Parts []gemPart `json:"parts"`
		} `json:"content"`
		FinishReason      string `json:"finishReason"`
		GroundingMetadata *struct {
			WebSearchQueries []string `json:"webSearchQueries"`
			GroundingChunks  []struct {
				Web struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount        uint64 `json:"promptTokenCount"`
		CandidatesTokenCount    uint64 `json:"candidatesTokenCount"`
		ThoughtsTokenCount      uint64 `json:"thoughtsTokenCount"`
		CachedContentTokenCount uint64 `json:"cachedContentTokenCount"`
	} `json:"usageMetadata"`
}

// =============================================================================
// SEND
// =============================================================================

// Send implements Adapter. Assistant turns use the role "model" on this
// wire; thinking tokens are counted separately from candidate tokens and
// must be summed into the output total.
func (a *GeminiAdapter) Send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	wire := gemRequest{}

	if req.SystemPrompt != "" {
		wire.SystemInstruction = &gemContent{Parts: []gemPart{{Text: req.SystemPrompt}}}
	}

	for _, m := range req.History {
		role := "user"
		if m.Role == model.RoleAssistant {
			role = "model"
		}
		wire.Contents = append(wire.Contents, gemContent{
			Role:  role,
			Parts: []gemPart{{Text: m.Content}},
		})
	}

	userParts := []gemPart{{Text: req.Input}}
	if req.ImageURL != "" {
		userParts = append(userParts, gemPart{FileData: &gemFileData{FileURI: req.ImageURL}})
	}
	wire.Contents = append(wire.Contents, gemContent{Role: "user", Parts: userParts})

	for _, tool := range req.Tools {
		switch tool {
		case tools.ToolSearch:
			wire.Tools = append(wire.Tools, gemTool{GoogleSearch: &struct{}{}})
		case tools.ToolThink:
			wire.GenerationConfig = &gemGenerationConfig{
				ThinkingConfig: &gemThinkingConfig{ThinkingBudget: geminiThinkBudget, IncludeThoughts: true},
			}
		case tools.ToolNoThink:
			wire.GenerationConfig = &gemGenerationConfig{
				ThinkingConfig: &gemThinkingConfig{ThinkingBudget: 0},
			}
		}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", a.baseURL, req.Model.Key)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", a.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google request failed: %w", err)
	}
	defer resp.Body.Close()
	logCall(http.MethodPost, "/models/"+req.Model.Key+":generateContent", resp.StatusCode, time.Since(start))

	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Provider: catalog.ProviderGoogle, Status: resp.StatusCode, Body: string(raw)}
	}

	var wireResp gemResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return nil, fmt.Errorf("failed to parse google response: %w", err)
	}

	return normalizeGemini(&wireResp)
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// normalizeGemini maps the Gemini wire shape into the canonical response.
// Parts flagged as thoughts become the reasoning trace; grounded responses
// get their source citations appended to the content as a rendered list.
func normalizeGemini(wire *gemResponse) (*ChatResponse, error) {
	if len(wire.Candidates) == 0 {
		return nil, ErrNoResponseContent
	}

	cand := wire.Candidates[0]
	var content strings.Builder
	var reasoning strings.Builder

	for _, part := range cand.Content.Parts {
		if part.Text == "" {
			continue
		}
		if part.Thought {
			reasoning.WriteString(part.Text)
		} else {
			content.WriteString(part.Text)
		}
	}

	searchCalls := 0
	if gm := cand.GroundingMetadata; gm != nil {
		searchCalls = len(gm.WebSearchQueries)
		if len(gm.GroundingChunks) > 0 {
			content.WriteString("\n\nSources:\n")
			for _, chunk := range gm.GroundingChunks {
				fmt.Fprintf(&content, "- %s (%s)\n", chunk.Web.Title, chunk.Web.URI)
			}
		}
	}

	text := strings.TrimSpace(content.String())
	trace := strings.TrimSpace(reasoning.String())
	if text == "" && trace == "" {
		return nil, ErrNoResponseContent
	}

	u := wire.UsageMetadata
	return &ChatResponse{
		Content:     text,
		Reasoning:   trace,
		StopReason:  cand.FinishReason,
		SearchCalls: searchCalls,
		Tokens: model.TokenCounts{
			Input: u.PromptTokenCount,
			// Thinking tokens are billed as output but reported apart.
			Output:        u.CandidatesTokenCount + u.ThoughtsTokenCount,
			InputCacheHit: u.CachedContentTokenCount,
		},
	}, nil
}
