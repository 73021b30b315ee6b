// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cancel.go - Cancel an outstanding background task.
package cli

import (
	"fmt"

	"github.com/jeranaias/polychat/internal/background"
	"github.com/jeranaias/polychat/internal/display"
	"github.com/jeranaias/polychat/internal/model"
)

// runCancel cancels a chat's outstanding background task. Without an id it
// targets the chat with a pending task, failing when that is ambiguous.
// The local task record is cleared even when the provider-side cancel
// fails, so a chat never stays wedged on a dead task.
func (a *App) runCancel(args *ArgParser) error {
	chat, err := a.pendingChat(args.Positional(0))
	if err != nil {
		return err
	}

	responses, err := a.dispatch.Responses()
	if err != nil {
		return err
	}
	mgr := background.NewManager(responses)

	ctx, cancel := signalContext()
	defer cancel()

	cancelErr := mgr.Cancel(ctx, chat)
	if err := a.store.Save(chat); err != nil {
		return fmt.Errorf("saving chat: %w", err)
	}

	if cancelErr != nil {
		display.Info("Provider cancel failed (%v); local task record cleared anyway.", cancelErr)
		return nil
	}
	display.Info("Background task cancelled for chat %s.", chat.ID)
	return nil
}

// pendingChat resolves the cancel target: an explicit id, or the single
// chat with an outstanding task.
func (a *App) pendingChat(query string) (*model.Chat, error) {
	if query != "" {
		id, err := a.resolveChatID(query)
		if err != nil {
			return nil, err
		}
		chat, err := a.store.Load(id)
		if err != nil {
			return nil, err
		}
		if !chat.HasPendingTask() {
			return nil, fmt.Errorf("chat %s has no outstanding background task", chat.ID)
		}
		return chat, nil
	}

	pending, err := a.store.ListPending()
	if err != nil {
		return nil, err
	}
	switch len(pending) {
	case 0:
		return nil, fmt.Errorf("no chats have outstanding background tasks")
	case 1:
		return a.store.Load(pending[0].ID)
	default:
		return nil, fmt.Errorf("%d chats have pending tasks; name one (polychat cancel <id>)", len(pending))
	}
}
