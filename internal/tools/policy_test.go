// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"errors"
	"testing"

	"github.com/jeranaias/polychat/internal/catalog"
)

func TestValidate_EmptyRequestAlwaysSucceeds(t *testing.T) {
	providers := []catalog.Provider{
		catalog.ProviderOpenAI,
		catalog.ProviderAnthropic,
		catalog.ProviderGoogle,
		catalog.ProviderDeepSeek, // no policy entry at all
		catalog.ProviderXAI,
	}

	for _, p := range providers {
		t.Run(p.String(), func(t *testing.T) {
			permitted, err := Validate(p, nil)
			if err != nil {
				t.Fatalf("Validate(%s, nil) returned error: %v", p, err)
			}
			if len(permitted) != 0 {
				t.Errorf("permitted = %v, want empty", permitted)
			}
		})
	}
}

func TestValidate_ProviderWithoutToolSupport(t *testing.T) {
	_, err := Validate(catalog.ProviderDeepSeek, []ToolID{ToolSearch})
	if err == nil {
		t.Fatal("Validate should fail for providers with no tool support")
	}

	var notSupported *NotSupportedError
	if !errors.As(err, &notSupported) {
		t.Fatalf("error type = %T, want *NotSupportedError", err)
	}
	if notSupported.Provider != catalog.ProviderDeepSeek {
		t.Errorf("error provider = %s, want deepseek", notSupported.Provider)
	}
}

func TestValidate_RejectsDisallowedTools(t *testing.T) {
	tests := []struct {
		name      string
		provider  catalog.Provider
		requested []ToolID
		invalid   []ToolID
	}{
		{
			name:      "anthropic rejects no-think",
			provider:  catalog.ProviderAnthropic,
			requested: []ToolID{ToolSearch, ToolNoThink},
			invalid:   []ToolID{ToolNoThink},
		},
		{
			name:      "google rejects code execution",
			provider:  catalog.ProviderGoogle,
			requested: []ToolID{ToolCode},
			invalid:   []ToolID{ToolCode},
		},
		{
			name:      "google rejects think-high",
			provider:  catalog.ProviderGoogle,
			requested: []ToolID{ToolThinkHigh, ToolSearch},
			invalid:   []ToolID{ToolThinkHigh},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.provider, tc.requested)
			if err == nil {
				t.Fatal("Validate should fail")
			}

			var invalid *InvalidToolError
			if !errors.As(err, &invalid) {
				t.Fatalf("error type = %T, want *InvalidToolError", err)
			}
			if len(invalid.Invalid) != len(tc.invalid) {
				t.Fatalf("invalid tools = %v, want %v", invalid.Invalid, tc.invalid)
			}
			for i, id := range tc.invalid {
				if invalid.Invalid[i] != id {
					t.Errorf("invalid[%d] = %s, want %s", i, invalid.Invalid[i], id)
				}
			}
			if len(invalid.Allowed) == 0 {
				t.Error("error should carry the provider's allowed set")
			}
		})
	}
}

func TestValidate_AcceptsAllowedTools(t *testing.T) {
	requested := []ToolID{ToolSearch, ToolThink}
	permitted, err := Validate(catalog.ProviderAnthropic, requested)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(permitted) != 2 || permitted[0] != ToolSearch || permitted[1] != ToolThink {
		t.Errorf("permitted = %v, want %v", permitted, requested)
	}
}

func TestValidate_OpenAIAllowsFullSet(t *testing.T) {
	all := []ToolID{ToolSearch, ToolCode, ToolThink, ToolThinkHigh, ToolNoThink}
	// think and no-think together are semantically odd but policy-legal;
	// the adapter takes the last effort directive.
	permitted, err := Validate(catalog.ProviderOpenAI, all)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(permitted) != len(all) {
		t.Errorf("permitted %d tools, want %d", len(permitted), len(all))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want ToolID
		ok   bool
	}{
		{"search", ToolSearch, true},
		{" CODE ", ToolCode, true},
		{"think-high", ToolThinkHigh, true},
		{"no-think", ToolNoThink, true},
		{"websearch", "", false},
	}

	for _, tc := range tests {
		got, ok := Parse(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
