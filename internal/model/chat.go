// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// BACKGROUND TASK
// =============================================================================

// TaskStatus is the provider-reported state of a background completion.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusErrored    TaskStatus = "errored"

	// TaskStatusIncomplete is reported when the provider stopped the run
	// before producing full output (token limit, content filter). Terminal.
	TaskStatusIncomplete TaskStatus = "incomplete"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is a final state. A task in a
// terminal state will never change status again on the provider side.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled, TaskStatusErrored, TaskStatusIncomplete:
		return true
	default:
		return false
	}
}

// BackgroundTask records an outstanding asynchronous completion attached to
// a chat. The Status field reflects the last observed provider status; it
// can be stale between polls, which is accepted behavior (a resume run
// refreshes it).
type BackgroundTask struct {
	// ID is the provider-side request id used for polling and cancellation.
	ID string `json:"id"`

	// Status is the last observed provider status.
	Status TaskStatus `json:"status"`

	// Provider identifies which provider owns the request.
	Provider string `json:"provider"`

	// ModelID is the catalog id of the model the request was sent to.
	ModelID string `json:"model_id"`

	// StartedAt is when the request was submitted.
	StartedAt time.Time `json:"started_at"`
}

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat is an ordered, append-only sequence of messages plus session metadata.
// Persistence is handled by the storage package; Chat itself is plain data.
type Chat struct {
	// Identity
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// SystemPrompt is sent with every request in this chat.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Summary is an optional cached one-line description, filled in lazily
	// by the best-effort summarizer.
	Summary string `json:"summary,omitempty"`

	// Messages grows monotonically during a session; entries are never
	// edited in place.
	Messages []ChatMessage `json:"messages"`

	// BackgroundTask is present only while an asynchronous completion is
	// outstanding. Cleared exactly when its terminal status is resolved or
	// the task is cancelled. At most one per chat.
	BackgroundTask *BackgroundTask `json:"background_task,omitempty"`
}

// NewChat creates an empty chat with the given system prompt.
func NewChat(systemPrompt string) *Chat {
	return &Chat{
		ID:           "chat_" + uuid.New().String(),
		CreatedAt:    time.Now(),
		SystemPrompt: systemPrompt,
	}
}

// =============================================================================
// CHAT METHODS
// =============================================================================

// Append adds a message to the end of the chat.
func (c *Chat) Append(msg ChatMessage) {
	c.Messages = append(c.Messages, msg)
}

// LastAssistant returns the most recent assistant message, or nil.
func (c *Chat) LastAssistant() *ChatMessage {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return &c.Messages[i]
		}
	}
	return nil
}

// FirstUserPreview returns a preview of the first user message for listings.
func (c *Chat) FirstUserPreview(maxLen int) string {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return m.Preview(maxLen)
		}
	}
	return "(empty)"
}

// TotalCost sums the cost of all assistant messages in the chat.
func (c *Chat) TotalCost() float64 {
	total := 0.0
	for _, m := range c.Messages {
		total += m.Cost
	}
	return total
}

// TotalTokens sums the token counts of all assistant messages.
func (c *Chat) TotalTokens() TokenCounts {
	var total TokenCounts
	for _, m := range c.Messages {
		total.Input += m.Tokens.Input
		total.Output += m.Tokens.Output
		total.InputCacheHit += m.Tokens.InputCacheHit
	}
	return total
}

// HasPendingTask reports whether an asynchronous completion is outstanding.
func (c *Chat) HasPendingTask() bool {
	return c.BackgroundTask != nil
}

// SetBackgroundTask attaches an outstanding background task to the chat.
func (c *Chat) SetBackgroundTask(task BackgroundTask) {
	c.BackgroundTask = &task
}

// ClearBackgroundTask removes the background task record. Called when the
// task reaches a terminal status or is cancelled locally.
func (c *Chat) ClearBackgroundTask() {
	c.BackgroundTask = nil
}

// Fork returns a copy of the chat truncated to its first n messages, with a
// fresh ID and creation time. The original chat is untouched; this is the
// only way to "edit" history.
func (c *Chat) Fork(n int) *Chat {
	if n < 0 {
		n = 0
	}
	if n > len(c.Messages) {
		n = len(c.Messages)
	}

	fork := NewChat(c.SystemPrompt)
	fork.Messages = make([]ChatMessage, n)
	copy(fork.Messages, c.Messages[:n])
	return fork
}
