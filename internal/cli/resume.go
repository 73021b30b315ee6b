// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// resume.go - Resume stored chats and collect background task results.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/polychat/internal/background"
	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/display"
	"github.com/jeranaias/polychat/internal/model"
	"github.com/jeranaias/polychat/internal/storage"
)

// runResume continues a stored chat. A chat with an outstanding background
// task is polled to completion first; otherwise the chat drops straight
// into the interactive loop. Without an id the most recent chat is used,
// or a picker when --pick is given.
func (a *App) runResume(args *ArgParser) error {
	query := args.Positional(0)

	if query == "" {
		if args.BoolFlag("pick") {
			metas, err := a.store.List()
			if err != nil {
				return err
			}
			id, err := pickChat("Resume which chat?", metas)
			if err != nil {
				return err
			}
			return a.resumeChat(id, args)
		}

		recent, err := a.store.MostRecent()
		if errors.Is(err, storage.ErrChatNotFound) {
			return fmt.Errorf("no saved chats to resume")
		}
		if err != nil {
			return err
		}
		return a.resumeChat(recent.ID, args)
	}

	id, err := a.resolveChatID(query)
	if err != nil {
		return err
	}
	return a.resumeChat(id, args)
}

// resumeChat loads one chat and continues it.
func (a *App) resumeChat(id string, args *ArgParser) error {
	chat, err := a.store.Load(id)
	if err != nil {
		return err
	}

	if chat.HasPendingTask() {
		if err := a.collectTask(chat); err != nil {
			return err
		}
	}

	sess, err := a.resumeSession(chat, args)
	if err != nil {
		return err
	}
	return a.repl(chat, sess)
}

// collectTask polls the chat's outstanding background task until it
// resolves, appending the priced response on completion. Ctrl+C leaves the
// task outstanding for a later resume.
func (a *App) collectTask(chat *model.Chat) error {
	task := chat.BackgroundTask

	responses, err := a.dispatch.Responses()
	if err != nil {
		return err
	}
	mgr := background.NewManager(responses)

	ctx, cancel := signalContext()
	defer cancel()

	display.Info("Waiting on background task %s (Ctrl+C detaches, task keeps running)...", task.ID)
	result, err := mgr.Resume(ctx, chat, func(elapsed time.Duration, status model.TaskStatus) {
		display.Info("  %s elapsed, status: %s", elapsed.Round(time.Second), status)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			display.Info("Detached. Resume again later with: polychat resume %s", chat.ID)
		}
		return err
	}

	if result.Status != model.TaskStatusCompleted {
		display.Info("Background task ended without output: %s", result.Status)
		return a.store.Save(chat)
	}

	m, err := catalog.Resolve(task.ModelID)
	if err != nil {
		// Catalog drift between submit and collect; price as free rather
		// than lose the output.
		m = catalog.Model{ID: task.ModelID}
	}
	resp := result.Response
	priced := catalog.EffectiveModel(m, resp.Tokens.Input)
	cost := catalog.Cost(priced, resp.Tokens, resp.SearchCalls)

	msg := model.NewAssistantMessage(m.ID, resp.Content, resp.Reasoning,
		resp.Tokens, resp.StopReason, cost, time.Since(task.StartedAt))
	chat.Append(msg)

	if err := a.store.Save(chat); err != nil {
		return fmt.Errorf("saving chat: %w", err)
	}
	a.out.Response(msg)
	return nil
}

// resumeSession builds the session settings for a continued chat: explicit
// flags win, then the model of the chat's last assistant message, then the
// config default.
func (a *App) resumeSession(chat *model.Chat, args *ArgParser) (*session, error) {
	if args.HasFlag("model") || args.HasFlag("m") {
		return a.resolveSession(args)
	}

	sess, err := a.resolveSession(args)
	if err != nil {
		return nil, err
	}
	if last := chat.LastAssistant(); last != nil {
		if m, err := catalog.Resolve(last.ModelID); err == nil {
			sess.model = m
		}
	}
	if chat.SystemPrompt != "" {
		sess.systemPrompt = chat.SystemPrompt
	}
	return sess, nil
}
