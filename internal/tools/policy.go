// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools defines the tool identifiers users can request and the
// per-provider policy that validates them before any network call.
package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/polychat/internal/catalog"
)

// =============================================================================
// TOOL IDENTIFIERS
// =============================================================================

// ToolID names one opt-in capability. Whether a given ToolID is valid is
// provider-dependent, not universal.
type ToolID string

const (
	// ToolSearch enables provider-side web search.
	ToolSearch ToolID = "search"

	// ToolCode enables provider-side code execution.
	ToolCode ToolID = "code"

	// ToolThink and ToolThinkHigh enable extended thinking at the normal
	// and high budget respectively. ToolNoThink disables thinking on models
	// that reason by default.
	ToolThink     ToolID = "think"
	ToolThinkHigh ToolID = "think-high"
	ToolNoThink   ToolID = "no-think"
)

// String returns the string representation of the tool id.
func (t ToolID) String() string {
	return string(t)
}

// Parse maps a user-supplied string to a known ToolID.
func Parse(s string) (ToolID, bool) {
	switch ToolID(strings.ToLower(strings.TrimSpace(s))) {
	case ToolSearch:
		return ToolSearch, true
	case ToolCode:
		return ToolCode, true
	case ToolThink:
		return ToolThink, true
	case ToolThinkHigh:
		return ToolThinkHigh, true
	case ToolNoThink:
		return ToolNoThink, true
	default:
		return "", false
	}
}

// =============================================================================
// PER-PROVIDER POLICY
// =============================================================================

// allowed maps each provider to the set of tools it supports. Providers
// absent from this table support no tools at all (DeepSeek, xAI).
var allowed = map[catalog.Provider]map[ToolID]bool{
	catalog.ProviderOpenAI: {
		ToolSearch:    true,
		ToolCode:      true,
		ToolThink:     true,
		ToolThinkHigh: true,
		ToolNoThink:   true,
	},
	catalog.ProviderAnthropic: {
		ToolSearch:    true,
		ToolCode:      true,
		ToolThink:     true,
		ToolThinkHigh: true,
	},
	catalog.ProviderGoogle: {
		ToolSearch:  true,
		ToolThink:   true,
		ToolNoThink: true,
	},
}

// =============================================================================
// ERRORS
// =============================================================================

// NotSupportedError reports a tool request against a provider that supports
// no tools at all.
type NotSupportedError struct {
	Provider catalog.Provider
}

// Error implements the error interface.
func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("tools are not supported by provider %s", e.Provider)
}

// InvalidToolError reports tools outside the provider's allow-list. It
// names the offending tools and the full allowed set.
type InvalidToolError struct {
	Provider catalog.Provider
	Invalid  []ToolID
	Allowed  []ToolID
}

// Error implements the error interface.
func (e *InvalidToolError) Error() string {
	return fmt.Sprintf("provider %s does not support %s (allowed: %s)",
		e.Provider, joinTools(e.Invalid), joinTools(e.Allowed))
}

func joinTools(ids []ToolID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks requested tools against the provider's allow-list and
// returns the permitted set. An empty request succeeds trivially for any
// provider (tools are opt-in). Validation is pure: no network calls, no
// mutation, so invalid combinations are rejected with zero cost before the
// adapter runs.
func Validate(provider catalog.Provider, requested []ToolID) ([]ToolID, error) {
	if len(requested) == 0 {
		return []ToolID{}, nil
	}

	set, ok := allowed[provider]
	if !ok {
		return nil, &NotSupportedError{Provider: provider}
	}

	var invalid []ToolID
	for _, tool := range requested {
		if !set[tool] {
			invalid = append(invalid, tool)
		}
	}

	if len(invalid) > 0 {
		return nil, &InvalidToolError{
			Provider: provider,
			Invalid:  invalid,
			Allowed:  AllowedFor(provider),
		}
	}

	permitted := make([]ToolID, len(requested))
	copy(permitted, requested)
	return permitted, nil
}

// AllowedFor returns the sorted allow-list for a provider. Providers with
// no entry return nil.
func AllowedFor(provider catalog.Provider) []ToolID {
	set, ok := allowed[provider]
	if !ok {
		return nil
	}

	out := make([]ToolID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether the slice includes the given tool.
func Contains(ids []ToolID, want ToolID) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
