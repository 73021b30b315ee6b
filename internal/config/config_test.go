// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jeranaias/polychat/internal/catalog"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"POLYCHAT_MODEL", "POLYCHAT_SYSTEM_PROMPT",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
		"DEEPSEEK_API_KEY", "XAI_API_KEY", "GITHUB_TOKEN",
	} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	clearKeyEnv(t)
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if !cfg.UI.Markdown || !cfg.UI.ShowCost || cfg.UI.Theme != "auto" {
		t.Errorf("defaults not applied: %+v", cfg.UI)
	}
}

func TestLoadFromPathParsesTOML(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfigFile(t, `
default_model = "sonnet"
system_prompt = "be terse"

[keys]
anthropic = "sk-ant-file"

[ui]
markdown = false
theme = "dark"
`)
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.DefaultModel != "sonnet" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.SystemPrompt != "be terse" {
		t.Errorf("SystemPrompt = %q", cfg.SystemPrompt)
	}
	if cfg.Keys.Anthropic != "sk-ant-file" {
		t.Errorf("Keys.Anthropic = %q", cfg.Keys.Anthropic)
	}
	if cfg.UI.Markdown || cfg.UI.Theme != "dark" {
		t.Errorf("UI = %+v", cfg.UI)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfigFile(t, `
[keys]
openai = "from-file"
`)
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("POLYCHAT_MODEL", "grok-3-mini")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Keys.OpenAI != "from-env" {
		t.Errorf("Keys.OpenAI = %q, env must win over file", cfg.Keys.OpenAI)
	}
	if cfg.DefaultModel != "grok-3-mini" {
		t.Errorf("DefaultModel = %q, want env override", cfg.DefaultModel)
	}
}

func TestValidateRejectsUnknownDefaultModel(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfigFile(t, `default_model = "definitely-not-a-model"`)
	if _, err := LoadFromPath(path); err == nil {
		t.Error("unresolvable default_model should fail validation")
	}
}

func TestValidateRejectsBadTheme(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "solarized"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid theme should fail validation")
	}
}

func TestValidateRejectsBadEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Endpoints.OpenAI = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("non-http endpoint should fail validation")
	}
}

func TestAPIKeyPerProvider(t *testing.T) {
	cfg := Default()
	cfg.Keys = KeysConfig{
		OpenAI:    "k-oa",
		Anthropic: "k-an",
		Google:    "k-go",
		DeepSeek:  "k-ds",
		XAI:       "k-xa",
	}

	tests := []struct {
		provider catalog.Provider
		wantKey  string
		wantEnv  string
	}{
		{catalog.ProviderOpenAI, "k-oa", "OPENAI_API_KEY"},
		{catalog.ProviderAnthropic, "k-an", "ANTHROPIC_API_KEY"},
		{catalog.ProviderGoogle, "k-go", "GEMINI_API_KEY"},
		{catalog.ProviderDeepSeek, "k-ds", "DEEPSEEK_API_KEY"},
		{catalog.ProviderXAI, "k-xa", "XAI_API_KEY"},
	}
	for _, tt := range tests {
		key, envVar := cfg.APIKey(tt.provider)
		if key != tt.wantKey || envVar != tt.wantEnv {
			t.Errorf("APIKey(%s) = (%q, %q), want (%q, %q)", tt.provider, key, envVar, tt.wantKey, tt.wantEnv)
		}
	}
}

func TestAPIKeyMissingReturnsEnvVarName(t *testing.T) {
	cfg := Default()
	key, envVar := cfg.APIKey(catalog.ProviderXAI)
	if key != "" {
		t.Errorf("key = %q, want empty", key)
	}
	if envVar != "XAI_API_KEY" {
		t.Errorf("envVar = %q, want XAI_API_KEY for the error message", envVar)
	}
}

func TestBaseURLsOnlyNonEmpty(t *testing.T) {
	cfg := Default()
	cfg.Endpoints.Anthropic = "http://localhost:9999"

	urls := cfg.BaseURLs()
	if len(urls) != 1 {
		t.Fatalf("BaseURLs() has %d entries, want 1", len(urls))
	}
	if urls[catalog.ProviderAnthropic] != "http://localhost:9999" {
		t.Errorf("anthropic base = %q", urls[catalog.ProviderAnthropic])
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.DefaultModel = "deepseek-chat"
	cfg.Keys.DeepSeek = "sk-ds"
	cfg.UI.ShowTokens = false
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.DefaultModel != "deepseek-chat" || loaded.Keys.DeepSeek != "sk-ds" || loaded.UI.ShowTokens {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("ui.theme", "light"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("UI.Theme = %q after Set", cfg.UI.Theme)
	}

	if err := cfg.Set("ui.show_cost", "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.UI.ShowCost {
		t.Error("UI.ShowCost should be false after Set")
	}

	if err := cfg.Set("keys.deepseek", "sk-x"); err != nil {
		t.Fatalf("Set(keys.deepseek) error = %v", err)
	}
	if cfg.Keys.DeepSeek != "sk-x" {
		t.Errorf("Keys.DeepSeek = %q", cfg.Keys.DeepSeek)
	}

	got, err := cfg.Get("ui.theme")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "light" {
		t.Errorf("Get(ui.theme) = %v", got)
	}

	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("Get() with unknown key should fail")
	}
	if err := cfg.Set("nope", "x"); err == nil {
		t.Error("Set() with unknown key should fail")
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := Default()
	cfg.Keys.OpenAI = "sk-secret"
	cfg.Keys.GitHub = "ghp_secret"

	safe := cfg.Redacted()
	if safe.Keys.OpenAI != "[REDACTED]" || safe.Keys.GitHub != "[REDACTED]" {
		t.Errorf("Redacted() leaked: %+v", safe.Keys)
	}
	if safe.Keys.Anthropic != "" {
		t.Errorf("empty key should stay empty, got %q", safe.Keys.Anthropic)
	}
	if cfg.Keys.OpenAI != "sk-secret" {
		t.Error("Redacted() must not mutate the original")
	}
}
