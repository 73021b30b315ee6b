// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package background manages long-running asynchronous completions for
// providers that support them (the OpenAI Responses API background mode).
//
// A background task moves through a small state machine:
//
//	queued -> in_progress -> {completed | failed | cancelled | errored}
//
// The manager submits, polls, resolves, and cancels; the owning Chat keeps
// the task record between process runs. The recorded status can be stale
// until the next resume - that window is a documented property, not a bug:
// the process may exit mid-poll and the next resume refreshes it.
package background

import (
	"context"
	"time"

	"github.com/jeranaias/polychat/internal/model"
	"github.com/jeranaias/polychat/internal/provider"
)

// DefaultPollInterval is the delay between status checks during resume.
const DefaultPollInterval = 5 * time.Second

// Client is the provider surface the manager drives. Implemented by
// provider.ResponsesAdapter; tests substitute fakes.
type Client interface {
	CreateBackground(ctx context.Context, req provider.ChatRequest) (*model.BackgroundTask, error)
	Poll(ctx context.Context, id string) (model.TaskStatus, error)
	Fetch(ctx context.Context, id string) (*provider.ChatResponse, error)
	Cancel(ctx context.Context, id string) error
}

// Manager drives the initiate/poll/resolve/cancel lifecycle.
type Manager struct {
	client Client

	// PollInterval is the delay between polls during Resume.
	PollInterval time.Duration
}

// NewManager creates a manager over the given background-capable client.
func NewManager(client Client) *Manager {
	return &Manager{client: client, PollInterval: DefaultPollInterval}
}

// =============================================================================
// LIFECYCLE OPERATIONS
// =============================================================================

// Initiate submits the request in background mode and returns the task
// record immediately, without blocking on completion. The caller attaches
// the record to the owning chat and persists it. A chat must have at most
// one outstanding task; enforcing that is the caller's precondition, not
// checked here.
func (m *Manager) Initiate(ctx context.Context, req provider.ChatRequest) (*model.BackgroundTask, error) {
	return m.client.CreateBackground(ctx, req)
}

// PollStatus performs a single non-blocking status check with no side
// effects.
func (m *Manager) PollStatus(ctx context.Context, id string) (model.TaskStatus, error) {
	return m.client.Poll(ctx, id)
}

// Result is the outcome of a Resume call.
type Result struct {
	// Status is the terminal status the task reached.
	Status model.TaskStatus

	// Response is the normalized completion, set only when Status is
	// completed. A non-completed terminal status is reported here as
	// output, not returned as an error.
	Response *provider.ChatResponse
}

// Resume polls the chat's outstanding task until it reaches a terminal
// status, sleeping PollInterval between checks. onTick, when non-nil, is
// called before each wait with the wall-clock time elapsed since the task
// started and the latest observed status.
//
// On a terminal status the chat's task record is cleared: completed tasks
// resolve to a normalized response, all other terminal states resolve to a
// status-only result. Cancelling ctx interrupts both the wait and any
// in-flight HTTP call; in that case the task record is left in place (still
// outstanding) and ctx.Err() is returned.
func (m *Manager) Resume(ctx context.Context, chat *model.Chat, onTick func(elapsed time.Duration, status model.TaskStatus)) (*Result, error) {
	task := chat.BackgroundTask
	if task == nil {
		return nil, ErrNoTask
	}

	interval := m.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	status := task.Status
	for {
		if status.IsTerminal() {
			break
		}

		var err error
		status, err = m.client.Poll(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		task.Status = status

		if status.IsTerminal() {
			break
		}

		if onTick != nil {
			onTick(time.Since(task.StartedAt), status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	result := &Result{Status: status}
	if status == model.TaskStatusCompleted {
		resp, err := m.client.Fetch(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		result.Response = resp
	}

	chat.ClearBackgroundTask()
	return result, nil
}

// Cancel issues a cancellation to the provider and clears the chat's local
// task record. The record is cleared even when the provider call fails:
// the user asked to abandon the task, so local state must not keep it
// outstanding. The provider-side error is still returned for display.
func (m *Manager) Cancel(ctx context.Context, chat *model.Chat) error {
	task := chat.BackgroundTask
	if task == nil {
		return ErrNoTask
	}

	err := m.client.Cancel(ctx, task.ID)
	chat.ClearBackgroundTask()
	return err
}
