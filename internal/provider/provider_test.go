// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/jeranaias/polychat/internal/catalog"
)

// fakeCreds is a fixed credential source for tests.
type fakeCreds map[catalog.Provider]string

func (f fakeCreds) APIKey(p catalog.Provider) (string, string) {
	return f[p], "TEST_" + string(p) + "_KEY"
}

// allCreds has a key for every provider.
var allCreds = fakeCreds{
	catalog.ProviderOpenAI:    "sk-test",
	catalog.ProviderAnthropic: "sk-ant-test",
	catalog.ProviderGoogle:    "g-test",
	catalog.ProviderDeepSeek:  "sk-ds-test",
	catalog.ProviderXAI:       "xai-test",
}

// =============================================================================
// DISPATCHER TESTS
// =============================================================================

func TestDispatcher_RoutesEveryProvider(t *testing.T) {
	d := NewDispatcher(allCreds)

	providers := []catalog.Provider{
		catalog.ProviderOpenAI,
		catalog.ProviderAnthropic,
		catalog.ProviderGoogle,
		catalog.ProviderDeepSeek,
		catalog.ProviderXAI,
	}

	for _, p := range providers {
		t.Run(p.String(), func(t *testing.T) {
			adapter, err := d.Adapter(p)
			if err != nil {
				t.Fatalf("Adapter(%s) returned error: %v", p, err)
			}
			if adapter == nil {
				t.Fatalf("Adapter(%s) returned nil", p)
			}
		})
	}
}

func TestDispatcher_UnknownProvider(t *testing.T) {
	d := NewDispatcher(allCreds)
	if _, err := d.Adapter(catalog.Provider("mystery")); err == nil {
		t.Fatal("Adapter should fail for an unknown provider")
	}
}

// =============================================================================
// CREDENTIAL FAILURE TESTS
// =============================================================================

func TestAdapters_MissingCredentialFailsBeforeNetwork(t *testing.T) {
	// Empty credential source: every construction must fail with a
	// MissingCredentialError naming the env var, with no dial attempted.
	d := NewDispatcher(fakeCreds{})

	for _, p := range []catalog.Provider{
		catalog.ProviderOpenAI,
		catalog.ProviderAnthropic,
		catalog.ProviderGoogle,
		catalog.ProviderDeepSeek,
		catalog.ProviderXAI,
	} {
		t.Run(p.String(), func(t *testing.T) {
			_, err := d.Adapter(p)
			if err == nil {
				t.Fatal("expected missing-credential error")
			}

			var missing *MissingCredentialError
			if !errors.As(err, &missing) {
				t.Fatalf("error type = %T, want *MissingCredentialError", err)
			}
			if missing.EnvVar == "" {
				t.Error("error should name the environment variable")
			}
		})
	}
}

func TestDispatcher_SendPropagatesCredentialError(t *testing.T) {
	d := NewDispatcher(fakeCreds{})
	m, _ := catalog.Resolve("deepseek-chat")

	_, err := d.Send(context.Background(), ChatRequest{Model: m, Input: "hi"})

	var missing *MissingCredentialError
	if !errors.As(err, &missing) {
		t.Fatalf("Send error = %v, want MissingCredentialError", err)
	}
}
