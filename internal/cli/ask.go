// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command, with optional background mode.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/polychat/internal/background"
	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/display"
	"github.com/jeranaias/polychat/internal/model"
	"github.com/jeranaias/polychat/internal/provider"
)

// runAsk sends a single prompt and prints the response. With --background
// the request is submitted asynchronously (OpenAI models only) and the
// command returns immediately; "polychat resume" collects the result later.
func (a *App) runAsk(args *ArgParser) error {
	prompt := args.JoinPositional(0)
	if prompt == "" {
		return fmt.Errorf("no prompt given (usage: polychat ask \"question\")")
	}

	sess, err := a.resolveSession(args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	chat := model.NewChat(sess.systemPrompt)
	req := provider.ChatRequest{
		SystemPrompt: sess.systemPrompt,
		Input:        prompt,
		ImageURL:     sess.imageURL,
		Model:        sess.model,
		Tools:        sess.tools,
	}

	if args.BoolFlag("background") {
		return a.askBackground(ctx, chat, req, prompt)
	}

	msg, err := a.send(ctx, chat, req, prompt)
	if err != nil {
		return err
	}
	if err := a.store.Save(chat); err != nil {
		return fmt.Errorf("saving chat: %w", err)
	}
	a.out.Response(*msg)
	return nil
}

// askBackground submits the request in background mode and persists the
// pending task on a new chat.
func (a *App) askBackground(ctx context.Context, chat *model.Chat, req provider.ChatRequest, prompt string) error {
	if req.Model.Provider != catalog.ProviderOpenAI {
		return fmt.Errorf("background mode requires an OpenAI model (got %s)", req.Model.ID)
	}

	responses, err := a.dispatch.Responses()
	if err != nil {
		return err
	}

	mgr := background.NewManager(responses)
	task, err := mgr.Initiate(ctx, req)
	if err != nil {
		return err
	}

	chat.Append(model.NewUserMessage(prompt, req.ImageURL))
	chat.SetBackgroundTask(*task)
	if err := a.store.Save(chat); err != nil {
		return fmt.Errorf("saving chat: %w", err)
	}

	display.Info("Background task %s started (%s).", task.ID, task.Status)
	display.Info("Collect the result with: polychat resume %s", chat.ID)
	return nil
}

// send performs one synchronous round trip, appending both the user input
// and the priced assistant response to the chat. The returned message is the
// appended assistant message.
func (a *App) send(ctx context.Context, chat *model.Chat, req provider.ChatRequest, prompt string) (*model.ChatMessage, error) {
	req.History = chat.Messages

	start := time.Now()
	resp, err := a.dispatch.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	priced := catalog.EffectiveModel(req.Model, resp.Tokens.Input)
	cost := catalog.Cost(priced, resp.Tokens, resp.SearchCalls)

	chat.Append(model.NewUserMessage(prompt, req.ImageURL))
	msg := model.NewAssistantMessage(req.Model.ID, resp.Content, resp.Reasoning,
		resp.Tokens, resp.StopReason, cost, elapsed)
	chat.Append(msg)

	return &chat.Messages[len(chat.Messages)-1], nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, so an
// in-flight API call can be interrupted cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()
	return ctx, cancel
}
