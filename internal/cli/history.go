// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Chat history listing and selection.
package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/polychat/internal/display"
	"github.com/jeranaias/polychat/internal/picker"
	"github.com/jeranaias/polychat/internal/storage"
)

// runHistory lists saved chats, newest first. Untitled chats get a
// best-effort model-generated summary first; with --pick an interactive
// selector resumes the chosen chat.
func (a *App) runHistory(args *ArgParser) error {
	metas, err := a.store.List()
	if err != nil {
		return err
	}

	if a.summarizeUntitled(metas) > 0 {
		// Re-read so fresh summaries show up in this listing.
		if updated, err := a.store.List(); err == nil {
			metas = updated
		}
	}

	if args.BoolFlag("pick") {
		id, err := pickChat("Select a chat", metas)
		if err != nil {
			return err
		}
		return a.resumeChat(id, args)
	}

	fmt.Print(display.ChatList(listEntries(metas)))
	return nil
}

// listEntries converts store metadata to display rows. The label prefers
// the cached summary over the first-message preview.
func listEntries(metas []storage.ChatMeta) []display.ChatListEntry {
	entries := make([]display.ChatListEntry, len(metas))
	for i, m := range metas {
		label := m.Summary
		if label == "" {
			label = m.Preview
		}
		entries[i] = display.ChatListEntry{
			ID:           m.ID,
			Label:        label,
			MessageCount: m.MessageCount,
			TotalCost:    m.TotalCost,
			Pending:      m.HasPendingTask,
		}
	}
	return entries
}

// pickChat runs the interactive selector over chat metadata.
func pickChat(title string, metas []storage.ChatMeta) (string, error) {
	if len(metas) == 0 {
		return "", fmt.Errorf("no saved chats")
	}

	items := make([]picker.Item, len(metas))
	for i, m := range metas {
		label := m.Summary
		if label == "" {
			label = m.Preview
		}
		detail := fmt.Sprintf("%d msgs, %s", m.MessageCount, display.FormatCost(m.TotalCost))
		if m.HasPendingTask {
			detail += ", task pending"
		}
		items[i] = picker.Item{ID: m.ID, Title: label, Detail: detail}
	}
	return picker.Pick(title, items)
}

// resolveChatID maps a user-supplied id or unique id prefix to a stored
// chat id. Typing the full uuid is unreasonable, so prefixes work the way
// they do for git commits.
func (a *App) resolveChatID(query string) (string, error) {
	metas, err := a.store.List()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, m := range metas {
		if m.ID == query {
			return m.ID, nil
		}
		if strings.HasPrefix(m.ID, query) || strings.HasPrefix(strings.TrimPrefix(m.ID, "chat_"), query) {
			matches = append(matches, m.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no chat matches %q (run 'polychat history' to list chats)", query)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous (%d chats match)", query, len(matches))
	}
}
