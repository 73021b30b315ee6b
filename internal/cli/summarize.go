// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// summarize.go - Best-effort one-line summaries for untitled chats.
package cli

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/provider"
	"github.com/jeranaias/polychat/internal/storage"
)

const (
	// summarizeWorkers bounds concurrent summary calls so a long history
	// listing cannot stampede the provider.
	summarizeWorkers = 3

	// summarizeTimeout caps the whole summarization pass. Listing history
	// must stay fast even when the provider is slow.
	summarizeTimeout = 15 * time.Second

	summaryPrompt = "Summarize this conversation topic in at most eight words. " +
		"Reply with only the summary, no punctuation at the end."
)

// summarizeUntitled fills in missing chat summaries with a short model call
// per chat, using the configured default model. Strictly best effort:
// failures are ignored, nothing is retried, and the pass gives up after a
// bounded wait. Returns the number of summaries written.
func (a *App) summarizeUntitled(metas []storage.ChatMeta) int {
	var pending []storage.ChatMeta
	for _, m := range metas {
		if m.Summary == "" && m.MessageCount > 0 && !m.HasPendingTask {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return 0
	}

	m, err := catalog.Resolve(a.cfg.DefaultModel)
	if err != nil {
		return 0
	}
	if key, _ := a.cfg.APIKey(m.Provider); key == "" {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), summarizeTimeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		written int
		mu      sync.Mutex
		sem     = make(chan struct{}, summarizeWorkers)
	)

	for _, meta := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			if summary := a.summarizeChat(ctx, m, id); summary != "" {
				if err := a.store.SetSummary(id, summary); err == nil {
					mu.Lock()
					written++
					mu.Unlock()
				}
			}
		}(meta.ID)
	}
	wg.Wait()

	return written
}

// summarizeChat produces a one-line summary for a single chat, or "" on
// any failure.
func (a *App) summarizeChat(ctx context.Context, m catalog.Model, id string) string {
	chat, err := a.store.Load(id)
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for _, msg := range chat.Messages {
		sb.WriteString(msg.Role.DisplayName())
		sb.WriteString(": ")
		sb.WriteString(msg.Preview(200))
		sb.WriteString("\n")
		if sb.Len() > 4000 {
			break
		}
	}

	resp, err := a.dispatch.Send(ctx, provider.ChatRequest{
		SystemPrompt: summaryPrompt,
		Input:        sb.String(),
		Model:        m,
	})
	if err != nil {
		return ""
	}

	summary := strings.TrimSpace(strings.Split(resp.Content, "\n")[0])
	if len(summary) > 80 {
		summary = summary[:80]
	}
	return summary
}
