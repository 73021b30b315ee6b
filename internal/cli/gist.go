// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// gist.go - Share a chat transcript as a secret GitHub gist.
package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/polychat/internal/display"
	"github.com/jeranaias/polychat/internal/share"
	"github.com/jeranaias/polychat/internal/storage"
)

// runGist exports one chat as markdown and uploads it as a secret gist.
// Without an id the most recent chat is shared.
func (a *App) runGist(args *ArgParser) error {
	var id string
	if query := args.Positional(0); query != "" {
		resolved, err := a.resolveChatID(query)
		if err != nil {
			return err
		}
		id = resolved
	} else {
		recent, err := a.store.MostRecent()
		if errors.Is(err, storage.ErrChatNotFound) {
			return fmt.Errorf("no saved chats to share")
		}
		if err != nil {
			return err
		}
		id = recent.ID
	}

	chat, err := a.store.Load(id)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := share.NewGistClient(a.cfg.Keys.GitHub)
	url, err := client.Upload(ctx, chat)
	if err != nil {
		return err
	}

	display.Info("Shared chat %s as a secret gist:", chat.ID)
	fmt.Println(url)
	return nil
}
