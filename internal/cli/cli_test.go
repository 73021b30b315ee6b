// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Covers argument parsing and command routing: the surface every
// invocation passes through before touching a provider.
package cli

import (
	"testing"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name: "flag with value",
			args: []string{"--model", "sonnet"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("model") != "sonnet" {
					t.Errorf("Flag(model) = %q, want %q", p.Flag("model"), "sonnet")
				}
			},
		},
		{
			name: "flag with equals",
			args: []string{"--model=grok"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("model") != "grok" {
					t.Errorf("Flag(model) = %q, want %q", p.Flag("model"), "grok")
				}
			},
		},
		{
			name: "short flag",
			args: []string{"-m", "gemini"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("m") != "gemini" {
					t.Errorf("Flag(m) = %q, want %q", p.Flag("m"), "gemini")
				}
			},
		},
		{
			name: "boolean flag standalone",
			args: []string{"--plain"},
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("plain") {
					t.Error("BoolFlag(plain) should be true")
				}
			},
		},
		{
			name: "boolean flag with equals false",
			args: []string{"--plain=false"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("plain") {
					t.Error("BoolFlag(plain) should be false")
				}
			},
		},
		{
			name: "positional arguments",
			args: []string{"explain", "this", "error"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 3 {
					t.Fatalf("PositionalCount() = %d, want 3", p.PositionalCount())
				}
				if p.JoinPositional(0) != "explain this error" {
					t.Errorf("JoinPositional(0) = %q", p.JoinPositional(0))
				}
			},
		},
		{
			name: "mixed flags and positionals",
			args: []string{"--model", "sonnet", "what", "is", "a", "monad"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("model") != "sonnet" {
					t.Errorf("Flag(model) = %q", p.Flag("model"))
				}
				if p.JoinPositional(0) != "what is a monad" {
					t.Errorf("JoinPositional(0) = %q", p.JoinPositional(0))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args)
			tt.validate(t, p)
		})
	}
}

// A boolean-only flag followed by a bare word must not swallow the word:
// "--background tell me a story" keeps the full prompt.
func TestArgParser_BoolOnlyFlagsKeepPrompt(t *testing.T) {
	p := NewArgParser([]string{"--background", "tell", "me", "a", "story"})

	if !p.BoolFlag("background") {
		t.Error("BoolFlag(background) should be true")
	}
	if got := p.JoinPositional(0); got != "tell me a story" {
		t.Errorf("JoinPositional(0) = %q, want %q", got, "tell me a story")
	}
}

func TestArgParser_ValueFlagConsumesNext(t *testing.T) {
	p := NewArgParser([]string{"--system", "be", "terse"})

	if got := p.Flag("system"); got != "be" {
		t.Errorf("Flag(system) = %q, want %q", got, "be")
	}
	if got := p.Positional(0); got != "terse" {
		t.Errorf("Positional(0) = %q, want %q", got, "terse")
	}
}

func TestArgParser_FlagAtEndIsBool(t *testing.T) {
	p := NewArgParser([]string{"question", "--verbose"})

	if !p.BoolFlag("verbose") {
		t.Error("trailing --verbose should parse as a boolean flag")
	}
	if p.Flag("verbose") != "" {
		t.Error("trailing --verbose should not have a string value")
	}
}

func TestArgParser_Defaults(t *testing.T) {
	p := NewArgParser(nil)

	if got := p.FlagOrDefault("model", "fallback"); got != "fallback" {
		t.Errorf("FlagOrDefault = %q, want fallback", got)
	}
	if got := p.FlagIntOrDefault("n", 7); got != 7 {
		t.Errorf("FlagIntOrDefault = %d, want 7", got)
	}
	if p.Positional(0) != "" {
		t.Error("Positional(0) on empty parser should be empty")
	}
	if p.JoinPositional(0) != "" {
		t.Error("JoinPositional(0) on empty parser should be empty")
	}
}

func TestArgParser_HasFlag(t *testing.T) {
	p := NewArgParser([]string{"--model", "sonnet", "--plain"})

	if !p.HasFlag("model") || !p.HasFlag("plain") {
		t.Error("HasFlag should see both string and bool flags")
	}
	if p.HasFlag("quiet") {
		t.Error("HasFlag(quiet) should be false")
	}
}

// =============================================================================
// COMMAND ROUTING TESTS (cli.go)
// =============================================================================

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"no args is chat", nil, CmdChat},
		{"explicit chat", []string{"chat"}, CmdChat},
		{"leading flag is chat", []string{"--model", "sonnet"}, CmdChat},
		{"ask", []string{"ask", "hello"}, CmdAsk},
		{"bare words are ask", []string{"what", "is", "a", "monad"}, CmdAsk},
		{"models", []string{"models"}, CmdModels},
		{"model alias", []string{"model"}, CmdModels},
		{"history", []string{"history"}, CmdHistory},
		{"ls alias", []string{"ls"}, CmdHistory},
		{"resume", []string{"resume", "chat_123"}, CmdResume},
		{"continue alias", []string{"continue"}, CmdResume},
		{"cancel", []string{"cancel"}, CmdCancel},
		{"cost", []string{"cost"}, CmdCost},
		{"config", []string{"config", "get", "ui.theme"}, CmdConfig},
		{"gist", []string{"gist", "chat_123"}, CmdGist},
		{"share alias", []string{"share"}, CmdGist},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"-h"}, CmdHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Parse(tt.args)
			if got != tt.want {
				t.Errorf("Parse(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParse_AskKeepsPrompt(t *testing.T) {
	cmd, args := Parse([]string{"ask", "-m", "deepseek", "explain", "channels"})

	if cmd != CmdAsk {
		t.Fatalf("command = %v, want CmdAsk", cmd)
	}
	if got := args.Flag("m"); got != "deepseek" {
		t.Errorf("Flag(m) = %q", got)
	}
	if got := args.JoinPositional(0); got != "explain channels" {
		t.Errorf("JoinPositional(0) = %q", got)
	}
}

func TestParse_BareWordsKeepAllPositionals(t *testing.T) {
	cmd, args := Parse([]string{"why", "is", "the", "sky", "blue"})

	if cmd != CmdAsk {
		t.Fatalf("command = %v, want CmdAsk", cmd)
	}
	if got := args.JoinPositional(0); got != "why is the sky blue" {
		t.Errorf("JoinPositional(0) = %q", got)
	}
}

// =============================================================================
// SESSION OPTION TESTS (app.go)
// =============================================================================

func TestParseToolList(t *testing.T) {
	tests := []struct {
		spec    string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"search", 1, false},
		{"search,code", 2, false},
		{" search , think ", 2, false},
		{"search,,code", 2, false},
		{"websearch", 0, true},
		{"search,bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseToolList(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseToolList(%q) expected error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseToolList(%q) error: %v", tt.spec, err)
			}
			if len(got) != tt.want {
				t.Errorf("parseToolList(%q) = %d tools, want %d", tt.spec, len(got), tt.want)
			}
		})
	}
}
