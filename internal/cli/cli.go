// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and routing for polychat.
package cli

import (
	"fmt"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdModels
	CmdHistory
	CmdResume
	CmdCancel
	CmdCost
	CmdConfig
	CmdGist
	CmdVersion
	CmdHelp
)

const usageText = `polychat - one chat client for many LLM providers

Talks to OpenAI, Anthropic, Google, DeepSeek, and xAI through a single
interface, with per-message cost accounting and local chat history.

Usage:
  polychat                      Start an interactive chat (default)
  polychat chat                 Same, explicitly
  polychat ask "question"       One-shot question, response to stdout
  polychat models               List known models and pricing
  polychat history              List saved chats
  polychat resume [id]          Resume a chat (picker when no id given)
  polychat cancel [id]          Cancel a chat's background task
  polychat cost [id]            Per-chat token and cost accounting
  polychat config [get|set]     Show or edit configuration
  polychat gist <id>            Share a chat transcript as a secret gist
  polychat version              Print version
  polychat help                 Show this help

Common flags:
  -m, --model NAME     Model to use (substring match, e.g. "sonnet", "grok")
  -s, --system TEXT    System prompt for the session
  -t, --tools LIST     Comma-separated tools: search,code,think,think-high,no-think
  --image URL          Attach an image to the prompt (vision models)
  --background         ask only: run asynchronously (OpenAI models only)
  --plain              Disable markdown rendering
  --reasoning          Print the model's reasoning trace when available
  -v, --verbose        Log API calls (method, path, status; never payloads)
  -q, --quiet          Suppress status output

Interactive commands (during chat):
  /model [name]        Show or switch model mid-chat
  /tools [list]        Show or set enabled tools
  /system              Show the system prompt
  /fork N              Fork the chat at message N into a new chat
  /cost                Show running session cost
  /help                Show available commands
  /quit                Exit (also Ctrl+D)

Examples:
  polychat ask "capital of France?"
  polychat ask -m gemini "summarize" --image https://example.com/chart.png
  polychat ask -m gpt-5 --background "write a long design doc"
  polychat chat -m deepseek-reasoner
  polychat resume
  polychat gist chat_1234

Configuration: ~/.polychat/config.toml (keys also via OPENAI_API_KEY,
ANTHROPIC_API_KEY, GEMINI_API_KEY, DEEPSEEK_API_KEY, XAI_API_KEY).

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("polychat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse maps raw arguments (without the program name) to a command and its
// argument parser. Unknown first words are treated as a prompt for ask, so
// "polychat what is a monad" just works.
func Parse(args []string) (Command, *ArgParser) {
	if len(args) == 0 {
		return CmdChat, NewArgParser(nil)
	}

	cmd := strings.ToLower(args[0])
	rest := args[1:]

	switch cmd {
	case "chat":
		return CmdChat, NewArgParser(rest)
	case "ask":
		return CmdAsk, NewArgParser(rest)
	case "models", "model":
		return CmdModels, NewArgParser(rest)
	case "history", "list", "ls":
		return CmdHistory, NewArgParser(rest)
	case "resume", "continue":
		return CmdResume, NewArgParser(rest)
	case "cancel":
		return CmdCancel, NewArgParser(rest)
	case "cost", "costs":
		return CmdCost, NewArgParser(rest)
	case "config":
		return CmdConfig, NewArgParser(rest)
	case "gist", "share":
		return CmdGist, NewArgParser(rest)
	case "version", "-v", "--version":
		return CmdVersion, NewArgParser(rest)
	case "help", "-h", "--help":
		return CmdHelp, NewArgParser(rest)
	default:
		if strings.HasPrefix(cmd, "-") {
			// Leading flags without a subcommand start an interactive chat:
			// "polychat -m sonnet".
			return CmdChat, NewArgParser(args)
		}
		// Bare words are a one-shot question.
		return CmdAsk, NewArgParser(args)
	}
}
