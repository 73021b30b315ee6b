// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cost.go - Token and dollar accounting reports.
package cli

import (
	"fmt"

	"github.com/jeranaias/polychat/internal/display"
	"github.com/jeranaias/polychat/internal/model"
)

// runCost reports spend. With a chat id it breaks the chat down per
// response; without one it totals every stored chat.
func (a *App) runCost(args *ArgParser) error {
	if query := args.Positional(0); query != "" {
		id, err := a.resolveChatID(query)
		if err != nil {
			return err
		}
		chat, err := a.store.Load(id)
		if err != nil {
			return err
		}
		printChatCost(chat)
		return nil
	}

	metas, err := a.store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("No chats found.")
		return nil
	}

	var total float64
	for _, m := range metas {
		total += m.TotalCost
	}
	fmt.Print(display.ChatList(listEntries(metas)))
	fmt.Printf("\nTotal across %d chats: %s\n", len(metas), display.FormatCost(total))
	return nil
}

// printChatCost prints one line per assistant response plus totals.
func printChatCost(chat *model.Chat) {
	fmt.Printf("Chat %s\n", chat.ID)

	perModel := map[string]float64{}
	for i, msg := range chat.Messages {
		if msg.Role != model.RoleAssistant {
			continue
		}
		cached := ""
		if msg.Tokens.InputCacheHit > 0 {
			cached = fmt.Sprintf(" (%d cached)", msg.Tokens.InputCacheHit)
		}
		fmt.Printf("  #%-3d %-22s %7d in%s / %6d out  %s\n",
			i, msg.ModelID, msg.Tokens.Input, cached, msg.Tokens.Output,
			display.FormatCost(msg.Cost))
		perModel[msg.ModelID] += msg.Cost
	}

	if len(perModel) > 1 {
		fmt.Println("  Per model:")
		for id, cost := range perModel {
			fmt.Printf("    %-24s %s\n", id, display.FormatCost(cost))
		}
	}

	total := chat.TotalTokens()
	fmt.Printf("  Total: %d in / %d out tokens, %s\n",
		total.Input, total.Output, display.FormatCost(chat.TotalCost()))
}
