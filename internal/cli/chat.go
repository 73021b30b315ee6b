// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL.
//
// Handles "polychat chat" (and bare "polychat"), a readline-style loop over
// the provider dispatcher with history navigation, slash commands, and
// per-response cost accounting.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/config"
	"github.com/jeranaias/polychat/internal/display"
	"github.com/jeranaias/polychat/internal/model"
	"github.com/jeranaias/polychat/internal/provider"
	"github.com/jeranaias/polychat/internal/tools"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// chatInput provides line editing and persistent input history for the
// REPL. Arrow keys navigate history; Ctrl+C aborts the current line.
type chatInput struct {
	line        *liner.State
	historyFile string
}

func newChatInput() *chatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}

	in := &chatInput{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	in.loadHistory()
	return in
}

func (c *chatInput) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// readInput reads one line, appending non-empty input to history.
func (c *chatInput) readInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists input history with owner-only permissions.
func (c *chatInput) saveHistory() {
	if err := config.EnsureDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

func (c *chatInput) close() {
	c.saveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// runChat starts an interactive session on a fresh chat.
func (a *App) runChat(args *ArgParser) error {
	sess, err := a.resolveSession(args)
	if err != nil {
		return err
	}
	return a.repl(model.NewChat(sess.systemPrompt), sess)
}

// repl drives the interactive loop on the given chat until /quit or EOF.
// Also used by resume to continue a stored chat.
func (a *App) repl(chat *model.Chat, sess *session) error {
	in := newChatInput()
	defer in.close()

	display.Info("polychat %s  |  model: %s  |  /help for commands, Ctrl+D to exit",
		Version, sess.model.ID)
	if len(chat.Messages) > 0 {
		display.Info("Resumed chat %s (%d messages, %s so far).",
			chat.ID, len(chat.Messages), display.FormatCost(chat.TotalCost()))
	}

	for {
		input, err := in.readInput(display.Prompt(sess.model.ID))
		if errors.Is(err, liner.ErrPromptAborted) {
			display.Info("(Ctrl+C clears the line; /quit or Ctrl+D exits)")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := a.slashCommand(chat, sess, input)
			if err != nil {
				display.Error(err)
			}
			if quit {
				break
			}
			continue
		}

		ctx, cancel := signalContext()
		req := provider.ChatRequest{
			SystemPrompt: sess.systemPrompt,
			Input:        input,
			Model:        sess.model,
			Tools:        sess.tools,
		}
		msg, err := a.send(ctx, chat, req, input)
		cancel()
		if err != nil {
			display.Error(err)
			continue
		}

		a.out.Response(*msg)

		if err := a.store.Save(chat); err != nil {
			display.Error(fmt.Errorf("saving chat: %w", err))
		}
	}

	if len(chat.Messages) > 0 {
		display.Info("Session total: %s over %d messages. Chat saved as %s.",
			display.FormatCost(chat.TotalCost()), len(chat.Messages), chat.ID)
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// slashCommand handles an in-session command. Returns quit=true when the
// loop should exit.
func (a *App) slashCommand(chat *model.Chat, sess *session, input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch cmd {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help", "/h":
		display.Info("%s", replHelp)
		return false, nil

	case "/model":
		if arg == "" {
			display.Info("Current model: %s (%s)", sess.model.ID, sess.model.Provider)
			return false, nil
		}
		m, err := catalog.Resolve(arg)
		if err != nil {
			return false, err
		}
		// Tool selections may not survive a provider switch.
		validated, err := tools.Validate(m.Provider, sess.tools)
		if err != nil {
			display.Info("Dropping tools not supported by %s.", m.Provider)
			validated = nil
		}
		sess.model = m
		sess.tools = validated
		display.Info("Switched to %s.", m.ID)
		return false, nil

	case "/tools":
		if arg == "" {
			if len(sess.tools) == 0 {
				display.Info("No tools enabled. Allowed for %s: %v",
					sess.model.Provider, tools.AllowedFor(sess.model.Provider))
			} else {
				display.Info("Enabled tools: %v", sess.tools)
			}
			return false, nil
		}
		list, err := parseToolList(arg)
		if err != nil {
			return false, err
		}
		validated, err := tools.Validate(sess.model.Provider, list)
		if err != nil {
			return false, err
		}
		sess.tools = validated
		display.Info("Tools set: %v", validated)
		return false, nil

	case "/system":
		if sess.systemPrompt == "" {
			display.Info("No system prompt set.")
		} else {
			display.Info("System prompt: %s", sess.systemPrompt)
		}
		return false, nil

	case "/fork":
		if arg == "" {
			return false, fmt.Errorf("usage: /fork N (keep the first N messages)")
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return false, fmt.Errorf("fork point must be a non-negative number")
		}
		forked := chat.Fork(n)
		if err := a.store.Save(forked); err != nil {
			return false, fmt.Errorf("saving fork: %w", err)
		}
		display.Info("Forked %d messages into %s. Continue it with: polychat resume %s",
			len(forked.Messages), forked.ID, forked.ID)
		return false, nil

	case "/cost":
		total := chat.TotalTokens()
		display.Info("Session: %d messages, %d in / %d out tokens, %s",
			len(chat.Messages), total.Input, total.Output,
			display.FormatCost(chat.TotalCost()))
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

const replHelp = `Commands:
  /model [name]   Show or switch the model
  /tools [list]   Show or set enabled tools (comma-separated)
  /system         Show the system prompt
  /fork N         Fork the first N messages into a new chat
  /cost           Show running session cost
  /quit           Exit (also Ctrl+D)`
