// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for polychat.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure with all settings
//   - KeysConfig: per-provider API keys
//   - EndpointsConfig: per-provider base URL overrides
//   - UIConfig: terminal display settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...)
//   - ~/.polychat/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	model := cfg.DefaultModel
//	key, envVar := cfg.APIKey(catalog.ProviderOpenAI)
package config
