// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog holds the static model catalog, model resolution, and
// token-based cost calculation.
package catalog

import (
	"fmt"
	"strings"
)

// =============================================================================
// PROVIDER TYPE
// =============================================================================

// Provider identifies a provider family. Adapter dispatch switches on this
// value, so the set is closed and checkable at compile time.
type Provider string

const (
	// ProviderOpenAI uses the OpenAI Responses API (background capable).
	ProviderOpenAI Provider = "openai"

	// ProviderAnthropic uses the Anthropic Messages API.
	ProviderAnthropic Provider = "anthropic"

	// ProviderGoogle uses the Google GenAI API.
	ProviderGoogle Provider = "google"

	// ProviderDeepSeek and ProviderXAI use OpenAI-compatible chat
	// completions behind their own base URLs and keys.
	ProviderDeepSeek Provider = "deepseek"
	ProviderXAI      Provider = "xai"
)

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// =============================================================================
// MODEL TYPE
// =============================================================================

// Model is one immutable catalog entry. Prices are dollars per million
// tokens. Entries are constructed once at startup and never mutated; the
// threshold override seam (EffectiveModel) returns adjusted copies.
type Model struct {
	// Provider is the provider family that serves this model.
	Provider Provider

	// Key is the wire-level model identifier sent to the provider.
	Key string

	// ID is the stable human-facing identifier, also usable for lookup.
	ID string

	// Default marks the model used when no query is given. Exactly one
	// catalog entry carries this flag.
	Default bool

	// InputPerMTok and OutputPerMTok are prices in dollars per 1M tokens.
	InputPerMTok  float64
	OutputPerMTok float64

	// CachedInputPerMTok, when non-zero, is the discounted price for input
	// tokens served from the provider's prompt cache.
	CachedInputPerMTok float64

	// SearchCostPerCall, when non-zero, is the flat dollar cost billed per
	// web search invocation.
	SearchCostPerCall float64

	// ContextWindow is the maximum input size in tokens, for display.
	ContextWindow int
}

// =============================================================================
// MODEL CATALOG
// =============================================================================

// Catalog is the ordered registry of known models. Order matters: substring
// resolution takes the first match in declared order, so more specific or
// preferred names come first (e.g. "flash" must hit gemini-2.5-flash before
// any id that merely contains those letters).
var Catalog = []Model{
	{
		Provider:          ProviderAnthropic,
		Key:               "claude-sonnet-4-5-20250929",
		ID:                "claude-sonnet-4-5",
		Default:           true,
		InputPerMTok:      3.0,
		OutputPerMTok:     15.0,
		CachedInputPerMTok: 0.30,
		SearchCostPerCall: 0.01,
		ContextWindow:     200_000,
	},
	{
		Provider:          ProviderAnthropic,
		Key:               "claude-opus-4-1-20250805",
		ID:                "claude-opus-4-1",
		InputPerMTok:      15.0,
		OutputPerMTok:     75.0,
		CachedInputPerMTok: 1.50,
		SearchCostPerCall: 0.01,
		ContextWindow:     200_000,
	},
	{
		Provider:          ProviderAnthropic,
		Key:               "claude-3-5-haiku-20241022",
		ID:                "claude-haiku-3-5",
		InputPerMTok:      0.80,
		OutputPerMTok:     4.0,
		CachedInputPerMTok: 0.08,
		ContextWindow:     200_000,
	},
	{
		Provider:          ProviderOpenAI,
		Key:               "gpt-5",
		ID:                "gpt-5",
		InputPerMTok:      1.25,
		OutputPerMTok:     10.0,
		CachedInputPerMTok: 0.125,
		SearchCostPerCall: 0.01,
		ContextWindow:     400_000,
	},
	{
		Provider:          ProviderOpenAI,
		Key:               "gpt-5-mini",
		ID:                "gpt-5-mini",
		InputPerMTok:      0.25,
		OutputPerMTok:     2.0,
		CachedInputPerMTok: 0.025,
		SearchCostPerCall: 0.01,
		ContextWindow:     400_000,
	},
	{
		Provider:      ProviderGoogle,
		Key:           "gemini-2.5-pro",
		ID:            "gemini-2.5-pro",
		InputPerMTok:  1.25,
		OutputPerMTok: 10.0,
		SearchCostPerCall: 0.035,
		ContextWindow: 1_048_576,
	},
	{
		Provider:      ProviderGoogle,
		Key:           "gemini-2.5-flash",
		ID:            "gemini-2.5-flash",
		InputPerMTok:  0.30,
		OutputPerMTok: 2.50,
		SearchCostPerCall: 0.035,
		ContextWindow: 1_048_576,
	},
	{
		Provider:          ProviderDeepSeek,
		Key:               "deepseek-chat",
		ID:                "deepseek-chat",
		InputPerMTok:      0.27,
		OutputPerMTok:     1.10,
		CachedInputPerMTok: 0.07,
		ContextWindow:     128_000,
	},
	{
		Provider:          ProviderDeepSeek,
		Key:               "deepseek-reasoner",
		ID:                "deepseek-reasoner",
		InputPerMTok:      0.55,
		OutputPerMTok:     2.19,
		CachedInputPerMTok: 0.14,
		ContextWindow:     128_000,
	},
	{
		Provider:      ProviderXAI,
		Key:           "grok-4",
		ID:            "grok-4",
		InputPerMTok:  3.0,
		OutputPerMTok: 15.0,
		CachedInputPerMTok: 0.75,
		ContextWindow: 256_000,
	},
	{
		Provider:      ProviderXAI,
		Key:           "grok-3-mini",
		ID:            "grok-3-mini",
		InputPerMTok:  0.30,
		OutputPerMTok: 0.50,
		ContextWindow: 131_072,
	},
}

// =============================================================================
// ERRORS
// =============================================================================

// ModelNotFoundError reports an unresolvable model query. User-facing: the
// message points at the catalog listing.
type ModelNotFoundError struct {
	Query string
}

// Error implements the error interface.
func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("no model matches %q (run 'polychat models' to list known models)", e.Query)
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve maps a user-supplied query to a catalog entry. An empty query
// returns the single default-flagged model. Otherwise the query is
// lower-cased and matched (1) exactly against Key or ID, then (2) as a
// substring of Key or ID in catalog order. Exact matches always win over
// substring matches, even when a substring match appears earlier in the
// catalog.
func Resolve(query string) (Model, error) {
	if query == "" {
		return DefaultModel(), nil
	}

	q := strings.ToLower(query)

	for _, m := range Catalog {
		if strings.ToLower(m.Key) == q || strings.ToLower(m.ID) == q {
			return m, nil
		}
	}

	for _, m := range Catalog {
		if strings.Contains(strings.ToLower(m.Key), q) || strings.Contains(strings.ToLower(m.ID), q) {
			return m, nil
		}
	}

	return Model{}, &ModelNotFoundError{Query: query}
}

// DefaultModel returns the catalog entry flagged default. The catalog
// integrity test asserts exactly one entry carries the flag.
func DefaultModel() Model {
	for _, m := range Catalog {
		if m.Default {
			return m
		}
	}
	// Unreachable with a well-formed catalog; tested at build time.
	panic("catalog: no default model")
}

// ByProvider returns all catalog entries for one provider, in catalog order.
func ByProvider(p Provider) []Model {
	var out []Model
	for _, m := range Catalog {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}
