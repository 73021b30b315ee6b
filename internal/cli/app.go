// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared application wiring for all CLI commands.
package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/config"
	"github.com/jeranaias/polychat/internal/display"
	"github.com/jeranaias/polychat/internal/provider"
	"github.com/jeranaias/polychat/internal/storage"
	"github.com/jeranaias/polychat/internal/tools"
)

// =============================================================================
// APP
// =============================================================================

// App holds the long-lived dependencies shared by every command: loaded
// configuration, the chat store, the provider dispatcher, and the output
// renderer. Commands are methods on App.
type App struct {
	cfg      *config.Config
	store    *storage.Store
	dispatch *provider.Dispatcher
	out      *display.Renderer
}

// NewApp loads configuration, opens the chat store, and wires the
// dispatcher. Global flags that affect all commands (verbose, plain,
// reasoning) are consumed here.
func NewApp(args *ArgParser) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if args.BoolFlag("verbose") || args.BoolFlag("v") {
		provider.Verbose = true
	}

	store, err := storage.OpenDefault()
	if err != nil {
		return nil, fmt.Errorf("opening chat store: %w", err)
	}

	dispatch := provider.NewDispatcher(cfg)
	for p, base := range cfg.BaseURLs() {
		dispatch.BaseURLs[p] = base
	}

	markdown := cfg.UI.Markdown && !args.BoolFlag("plain")
	out := display.New(markdown, cfg.UI.Theme)
	out.ShowCost = cfg.UI.ShowCost && !args.BoolFlag("quiet") && !args.BoolFlag("q")
	out.ShowTokens = cfg.UI.ShowTokens && !args.BoolFlag("quiet") && !args.BoolFlag("q")
	out.ShowReasoning = args.BoolFlag("reasoning")

	return &App{cfg: cfg, store: store, dispatch: dispatch, out: out}, nil
}

// Close releases the app's resources.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Run dispatches a parsed command.
func (a *App) Run(cmd Command, args *ArgParser) error {
	switch cmd {
	case CmdChat:
		return a.runChat(args)
	case CmdAsk:
		return a.runAsk(args)
	case CmdModels:
		return a.runModels(args)
	case CmdHistory:
		return a.runHistory(args)
	case CmdResume:
		return a.runResume(args)
	case CmdCancel:
		return a.runCancel(args)
	case CmdCost:
		return a.runCost(args)
	case CmdConfig:
		return a.runConfig(args)
	case CmdGist:
		return a.runGist(args)
	case CmdVersion:
		PrintVersion()
		return nil
	case CmdHelp:
		PrintUsage()
		return nil
	default:
		return fmt.Errorf("unknown command")
	}
}

// =============================================================================
// SESSION OPTIONS
// =============================================================================

// session captures the per-invocation request settings resolved from flags
// and configuration: which model, which system prompt, which tools.
type session struct {
	model        catalog.Model
	systemPrompt string
	tools        []tools.ToolID
	imageURL     string
}

// resolveSession resolves flags against the config defaults. The model flag
// wins over config default_model; both go through catalog resolution, so
// substring queries like "sonnet" work in either place.
func (a *App) resolveSession(args *ArgParser) (*session, error) {
	query := args.FlagOrDefault("model", args.FlagOrDefault("m", a.cfg.DefaultModel))
	m, err := catalog.Resolve(query)
	if err != nil {
		return nil, err
	}

	systemPrompt := args.FlagOrDefault("system", args.FlagOrDefault("s", a.cfg.SystemPrompt))

	toolList, err := parseToolList(args.FlagOrDefault("tools", args.FlagOrDefault("t", "")))
	if err != nil {
		return nil, err
	}
	validated, err := tools.Validate(m.Provider, toolList)
	if err != nil {
		return nil, err
	}

	return &session{
		model:        m,
		systemPrompt: systemPrompt,
		tools:        validated,
		imageURL:     args.FlagOrDefault("image", ""),
	}, nil
}

// parseToolList splits a comma-separated tool spec into tool ids. Unknown
// names fail immediately rather than being silently dropped.
func parseToolList(spec string) ([]tools.ToolID, error) {
	if spec == "" {
		return nil, nil
	}

	var out []tools.ToolID
	for _, part := range strings.Split(spec, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		id, ok := tools.Parse(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool %q (known: search, code, think, think-high, no-think)", name)
		}
		out = append(out, id)
	}
	return out, nil
}
