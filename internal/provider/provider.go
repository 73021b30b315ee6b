// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements one adapter per provider family, translating
// the provider-agnostic chat contract into each provider's wire protocol
// and normalizing the responses back into one canonical shape.
//
// Every provider-specific quirk (cache token semantics, inline reasoning
// markers, citation rendering, content block kinds) lives inside the single
// adapter for that family and nowhere else.
package provider

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/model"
	"github.com/jeranaias/polychat/internal/tools"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout is the default timeout for synchronous API requests.
	// Extended-thinking calls can legitimately run for minutes.
	DefaultTimeout = 300 * time.Second

	// MaxResponseSize caps response bodies to keep a malformed or hostile
	// endpoint from exhausting memory.
	MaxResponseSize = 50 * 1024 * 1024 // 50MB
)

// sharedHTTPClient is used by all adapters. Connection pooling reduces TCP
// handshake overhead across sequential calls to the same provider.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	Timeout: DefaultTimeout,
}

// Verbose enables request/response status logging. Logs carry method, path,
// status and duration only - never headers, payloads, or credentials.
var Verbose = false

// =============================================================================
// CONTRACT TYPES
// =============================================================================

// ChatRequest is the provider-agnostic request every adapter accepts. It is
// an immutable snapshot: adapters never mutate it, so no locking is needed
// anywhere in this package.
type ChatRequest struct {
	// SystemPrompt is the system instruction for the conversation.
	SystemPrompt string

	// History is the prior conversation, oldest first.
	History []model.ChatMessage

	// Input is the new user input to answer.
	Input string

	// ImageURL optionally attaches an image to the new input.
	ImageURL string

	// Model is the resolved catalog entry to send to.
	Model catalog.Model

	// Tools is the validated, permitted tool set for this call.
	Tools []tools.ToolID
}

// ChatResponse is the canonical normalized response shape shared by all
// adapters and by background-task resolution.
type ChatResponse struct {
	// Content is the flat assistant text, with any structured tool-result
	// blocks already rendered in and inline reasoning stripped out.
	Content string

	// Reasoning is the extracted thinking trace, empty when absent.
	Reasoning string

	// Tokens is the normalized token accounting for the call.
	Tokens model.TokenCounts

	// StopReason is the provider-reported finish reason, as-is.
	StopReason string

	// SearchCalls is the number of billed web search invocations observed
	// in the response, for cost accounting.
	SearchCalls int
}

// Adapter is the contract implemented by every provider family.
type Adapter interface {
	// Send performs one synchronous completion call and returns the
	// normalized response. Network and API failures propagate unretried.
	Send(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials supplies API keys per provider. The config package implements
// this; tests substitute fixed maps.
type Credentials interface {
	// APIKey returns the key for a provider and the name of the
	// environment variable that supplies it (for error messages).
	APIKey(p catalog.Provider) (key, envVar string)
}

// requireKey fails fast with a MissingCredentialError naming the variable
// when the provider's key is absent. Runs before any network attempt.
func requireKey(creds Credentials, p catalog.Provider) (string, error) {
	key, envVar := creds.APIKey(p)
	if key == "" {
		return "", &MissingCredentialError{Provider: p, EnvVar: envVar}
	}
	return key, nil
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher routes a request to the adapter matching its model's provider.
// The provider set is closed: the switch below is exhaustive over
// catalog.Provider values.
type Dispatcher struct {
	creds Credentials

	// BaseURLs overrides provider endpoints, used by tests and proxies.
	// Empty entries use each adapter's production default.
	BaseURLs map[catalog.Provider]string
}

// NewDispatcher creates a dispatcher over the given credential source.
func NewDispatcher(creds Credentials) *Dispatcher {
	return &Dispatcher{creds: creds, BaseURLs: map[catalog.Provider]string{}}
}

// Adapter constructs the adapter for a provider, failing fast when the
// provider's credential is missing.
func (d *Dispatcher) Adapter(p catalog.Provider) (Adapter, error) {
	switch p {
	case catalog.ProviderOpenAI:
		return NewResponsesAdapter(d.creds, d.BaseURLs[p])
	case catalog.ProviderAnthropic:
		return NewAnthropicAdapter(d.creds, d.BaseURLs[p])
	case catalog.ProviderGoogle:
		return NewGeminiAdapter(d.creds, d.BaseURLs[p])
	case catalog.ProviderDeepSeek:
		return NewDeepSeekAdapter(d.creds, d.BaseURLs[p])
	case catalog.ProviderXAI:
		return NewXAIAdapter(d.creds, d.BaseURLs[p])
	default:
		return nil, fmt.Errorf("unknown provider %q", p)
	}
}

// Send routes one request to the matching adapter.
func (d *Dispatcher) Send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	adapter, err := d.Adapter(req.Model.Provider)
	if err != nil {
		return nil, err
	}
	return adapter.Send(ctx, req)
}

// Responses returns the Responses-API adapter for background operations.
func (d *Dispatcher) Responses() (*ResponsesAdapter, error) {
	return NewResponsesAdapter(d.creds, d.BaseURLs[catalog.ProviderOpenAI])
}

// =============================================================================
// SHARED HTTP HELPERS
// =============================================================================

// readBody reads a response body under the size cap.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", int64(MaxResponseSize))
	}
	return body, nil
}

// logCall logs one request/response pair when Verbose is set.
func logCall(method, path string, status int, duration time.Duration) {
	if Verbose {
		log.Printf("API %s %s: %d (%v)", method, path, status, duration)
	}
}
