// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// TOKEN COUNTS
// =============================================================================

// TokenCounts holds the token accounting for a single provider call.
// A response with no usage data reported by the API leaves all fields zero.
type TokenCounts struct {
	// Input is the total prompt tokens billed for the call.
	Input uint64 `json:"input"`

	// Output is the total completion tokens, including any reasoning tokens.
	Output uint64 `json:"output"`

	// InputCacheHit is the count of input tokens served from the provider's
	// prompt cache. Always <= Input.
	InputCacheHit uint64 `json:"input_cache_hit,omitempty"`
}

// Total returns input + output tokens.
func (t TokenCounts) Total() uint64 {
	return t.Input + t.Output
}

// IsZero reports whether the API returned no usage data at all.
func (t TokenCounts) IsZero() bool {
	return t.Input == 0 && t.Output == 0 && t.InputCacheHit == 0
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ChatMessage represents a single message in a chat. User and assistant
// messages share one struct; the assistant-only fields stay empty on user
// messages. Messages are append-only: once added to a Chat they are never
// edited (fork the Chat instead).
type ChatMessage struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// ImageURL is an optional image attachment (user messages only).
	ImageURL string `json:"image_url,omitempty"`

	// Assistant-only fields
	ModelID    string      `json:"model_id,omitempty"`
	Reasoning  string      `json:"reasoning,omitempty"`
	Tokens     TokenCounts `json:"tokens,omitempty"`
	StopReason string      `json:"stop_reason,omitempty"`
	Cost       float64     `json:"cost,omitempty"`
	ElapsedMs  int64       `json:"elapsed_ms,omitempty"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content, imageURL string) ChatMessage {
	return ChatMessage{
		ID:        generateMessageID(),
		Role:      RoleUser,
		Content:   content,
		ImageURL:  imageURL,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates a new assistant message with accounting data.
func NewAssistantMessage(modelID, content, reasoning string, tokens TokenCounts, stopReason string, cost float64, elapsed time.Duration) ChatMessage {
	return ChatMessage{
		ID:         generateMessageID(),
		Role:       RoleAssistant,
		Content:    content,
		ModelID:    modelID,
		Reasoning:  reasoning,
		Tokens:     tokens,
		StopReason: stopReason,
		Cost:       cost,
		ElapsedMs:  elapsed.Milliseconds(),
		Timestamp:  time.Now(),
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m ChatMessage) Preview(maxLen int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// HasReasoning reports whether the assistant produced a reasoning trace.
func (m ChatMessage) HasReasoning() bool {
	return m.Reasoning != ""
}

// FormatStats returns a one-line accounting summary for assistant messages.
func (m ChatMessage) FormatStats() string {
	if m.Role != RoleAssistant {
		return ""
	}

	// Format: "claude-sonnet-4-5 | 1.2K in / 350 out | $0.0089 | 2.5s"
	line := fmt.Sprintf("%s | %s in / %s out",
		m.ModelID,
		formatTokens(m.Tokens.Input),
		formatTokens(m.Tokens.Output),
	)
	if m.Tokens.InputCacheHit > 0 {
		line += fmt.Sprintf(" (%s cached)", formatTokens(m.Tokens.InputCacheHit))
	}
	line += fmt.Sprintf(" | $%.4f | %.1fs", m.Cost, float64(m.ElapsedMs)/1000)
	return line
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateMessageID creates a unique message ID.
func generateMessageID() string {
	return "msg_" + uuid.New().String()
}

// formatTokens formats a token count compactly (1234 -> "1.2K").
func formatTokens(n uint64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}
