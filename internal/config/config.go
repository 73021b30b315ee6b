// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/polychat/internal/catalog"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete polychat configuration.
type Config struct {
	// DefaultModel overrides the catalog default when set. Resolved with
	// the same exact-then-substring rules as --model.
	DefaultModel string `toml:"default_model"`

	// SystemPrompt is the default system prompt for new chats.
	SystemPrompt string `toml:"system_prompt"`

	// Keys holds per-provider API keys. Environment variables take
	// precedence; the file is a fallback for setups without env vars.
	Keys KeysConfig `toml:"keys"`

	// Endpoints holds per-provider base URL overrides, used mainly to
	// point adapters at proxies or test servers.
	Endpoints EndpointsConfig `toml:"endpoints"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// KeysConfig contains provider API keys.
type KeysConfig struct {
	OpenAI    string `toml:"openai"`
	Anthropic string `toml:"anthropic"`
	Google    string `toml:"google"`
	DeepSeek  string `toml:"deepseek"`
	XAI       string `toml:"xai"`
	// GitHub is used only for gist sharing, not for chat.
	GitHub string `toml:"github"`
}

// EndpointsConfig contains optional base URL overrides per provider.
// Empty values mean the adapter's built-in endpoint.
type EndpointsConfig struct {
	OpenAI    string `toml:"openai"`
	Anthropic string `toml:"anthropic"`
	Google    string `toml:"google"`
	DeepSeek  string `toml:"deepseek"`
	XAI       string `toml:"xai"`
}

// UIConfig contains terminal display configuration.
type UIConfig struct {
	// Markdown renders assistant output through glamour when stdout is a
	// terminal. Piped output is always plain.
	Markdown bool `toml:"markdown"`
	// ShowCost appends the cost line after each response.
	ShowCost bool `toml:"show_cost"`
	// ShowTokens appends token counts after each response.
	ShowTokens bool `toml:"show_tokens"`
	// Theme is the glamour style: "dark", "light", "auto"
	Theme string `toml:"theme"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DefaultModel: "",
		SystemPrompt: "",

		UI: UIConfig{
			Markdown:   true,
			ShowCost:   true,
			ShowTokens: true,
			Theme:      "auto",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the polychat configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".polychat"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions fixes permissions on the config file. The file
// can hold API keys, so anything looser than 0600 is tightened.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the default file, falling back to defaults
// when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path. A missing
// file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save saves the configuration to the default TOML file with 0600
// permissions (the file can hold API keys).
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# polychat configuration file")
	fmt.Fprintln(file, "# Environment variables override values set here.")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.DefaultModel != "" {
		if _, err := catalog.Resolve(c.DefaultModel); err != nil {
			errs = append(errs, ValidationError{
				Field:   "default_model",
				Message: fmt.Sprintf("does not match any known model: %q", c.DefaultModel),
			})
		}
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	for name, base := range map[string]string{
		"endpoints.openai":    c.Endpoints.OpenAI,
		"endpoints.anthropic": c.Endpoints.Anthropic,
		"endpoints.google":    c.Endpoints.Google,
		"endpoints.deepseek":  c.Endpoints.DeepSeek,
		"endpoints.xai":       c.Endpoints.XAI,
	} {
		if base == "" {
			continue
		}
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			errs = append(errs, ValidationError{
				Field:   name,
				Message: fmt.Sprintf("base URL must start with http:// or https://, got %q", base),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing configuration fields.
func (c *Config) SetDefaults() {
	if c.UI.Theme == "" {
		c.UI.Theme = "auto"
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// envVarFor maps a provider to the environment variable holding its key.
var envVarFor = map[catalog.Provider]string{
	catalog.ProviderOpenAI:    "OPENAI_API_KEY",
	catalog.ProviderAnthropic: "ANTHROPIC_API_KEY",
	catalog.ProviderGoogle:    "GEMINI_API_KEY",
	catalog.ProviderDeepSeek:  "DEEPSEEK_API_KEY",
	catalog.ProviderXAI:       "XAI_API_KEY",
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - POLYCHAT_MODEL: overrides default_model
//   - POLYCHAT_SYSTEM_PROMPT: overrides system_prompt
//   - OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY,
//     DEEPSEEK_API_KEY, XAI_API_KEY: override the matching keys entry
//   - GITHUB_TOKEN: overrides keys.github (gist sharing)
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("POLYCHAT_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if prompt := os.Getenv("POLYCHAT_SYSTEM_PROMPT"); prompt != "" {
		c.SystemPrompt = prompt
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Keys.OpenAI = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Keys.Anthropic = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Keys.Google = key
	}
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		c.Keys.DeepSeek = key
	}
	if key := os.Getenv("XAI_API_KEY"); key != "" {
		c.Keys.XAI = key
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.Keys.GitHub = token
	}
}

// =============================================================================
// CREDENTIAL RESOLUTION
// =============================================================================

// APIKey returns the configured key for the given provider along with the
// environment variable that names it. An empty key with the variable name
// lets callers produce an actionable missing-credential message.
// Implements provider.Credentials.
func (c *Config) APIKey(p catalog.Provider) (string, string) {
	envVar := envVarFor[p]
	switch p {
	case catalog.ProviderOpenAI:
		return c.Keys.OpenAI, envVar
	case catalog.ProviderAnthropic:
		return c.Keys.Anthropic, envVar
	case catalog.ProviderGoogle:
		return c.Keys.Google, envVar
	case catalog.ProviderDeepSeek:
		return c.Keys.DeepSeek, envVar
	case catalog.ProviderXAI:
		return c.Keys.XAI, envVar
	default:
		return "", envVar
	}
}

// BaseURLs returns the non-empty endpoint overrides keyed by provider, in
// the shape the dispatcher consumes.
func (c *Config) BaseURLs() map[catalog.Provider]string {
	out := make(map[catalog.Provider]string)
	for p, base := range map[catalog.Provider]string{
		catalog.ProviderOpenAI:    c.Endpoints.OpenAI,
		catalog.ProviderAnthropic: c.Endpoints.Anthropic,
		catalog.ProviderGoogle:    c.Endpoints.Google,
		catalog.ProviderDeepSeek:  c.Endpoints.DeepSeek,
		catalog.ProviderXAI:       c.Endpoints.XAI,
	} {
		if base != "" {
			out[p] = base
		}
	}
	return out
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.fieldFor(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g. "ui.show_cost").
func (c *Config) Set(key string, value string) error {
	field, err := c.fieldFor(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		field.SetBool(value == "1" || strings.EqualFold(value, "true") || strings.EqualFold(value, "yes"))
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %v", err)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %v", err)
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s for key %s", field.Kind(), key)
	}
	return nil
}

// fieldFor navigates dot notation to the reflect.Value of a leaf field.
func (c *Config) fieldFor(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 || key == "" {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	switch strings.ToLower(name) {
	// Acronym fields whose Go names do not follow simple title casing.
	case "openai":
		return "OpenAI"
	case "deepseek":
		return "DeepSeek"
	case "xai":
		return "XAI"
	case "github":
		return "GitHub"
	case "ui":
		return "UI"
	}

	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"default_model",
		"system_prompt",
		"keys.openai",
		"keys.anthropic",
		"keys.google",
		"keys.deepseek",
		"keys.xai",
		"keys.github",
		"endpoints.openai",
		"endpoints.anthropic",
		"endpoints.google",
		"endpoints.deepseek",
		"endpoints.xai",
		"ui.markdown",
		"ui.show_cost",
		"ui.show_tokens",
		"ui.theme",
	}
}

// Redacted returns a copy with all secrets replaced, safe for display.
func (c *Config) Redacted() *Config {
	safe := *c
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "[REDACTED]"
	}
	safe.Keys.OpenAI = redact(c.Keys.OpenAI)
	safe.Keys.Anthropic = redact(c.Keys.Anthropic)
	safe.Keys.Google = redact(c.Keys.Google)
	safe.Keys.DeepSeek = redact(c.Keys.DeepSeek)
	safe.Keys.XAI = redact(c.Keys.XAI)
	safe.Keys.GitHub = redact(c.Keys.GitHub)
	return &safe
}
