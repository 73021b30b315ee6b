// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"

	"github.com/jeranaias/polychat/internal/catalog"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoResponseContent indicates the provider returned a structurally valid
// but contentless synchronous response. This is a hard error, never
// silently swallowed.
var ErrNoResponseContent = errors.New("provider returned no response content")

// MissingCredentialError reports an absent API key. Raised before any
// network attempt, naming the environment variable to set.
type MissingCredentialError struct {
	Provider catalog.Provider
	EnvVar   string
}

// Error implements the error interface.
func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("no API key for provider %s: set %s", e.Provider, e.EnvVar)
}

// RequestError reports an HTTP or API-level failure from a provider,
// carrying the status code and raw error payload where available. The core
// never retries these; they propagate to the caller for presentation.
type RequestError struct {
	Provider catalog.Provider
	Status   int
	Body     string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s request failed (HTTP %d): %s", e.Provider, e.Status, e.Body)
	}
	return fmt.Sprintf("%s request failed (HTTP %d)", e.Provider, e.Status)
}
