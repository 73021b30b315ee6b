// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package display renders polychat output for the terminal.
//
// Assistant responses render as markdown through glamour when stdout is a
// terminal; piped output is always plain text so downstream tools get the
// raw response. Stats lines, reasoning, and errors use lipgloss styles.
package display

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/model"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

const (
	// DefaultWidth is the fallback width when detection fails.
	DefaultWidth = 80

	// MinWidth is the minimum width used for wrapping.
	MinWidth = 40
)

// IsTTY returns true if stdin is a terminal. Use this to determine if
// interactive prompts are possible.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal. Use this to determine
// if markdown and colored output should be used.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the current terminal width, or DefaultWidth when it
// cannot be determined.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	if width < MinWidth {
		return MinWidth
	}
	return width
}

// =============================================================================
// STYLES
// =============================================================================

var (
	cyan     = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	emerald  = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	rose     = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	muted    = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	lavender = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#B4BEFE"}

	promptStyle    = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	modelStyle     = lipgloss.NewStyle().Foreground(emerald)
	statsStyle     = lipgloss.NewStyle().Foreground(muted)
	reasoningStyle = lipgloss.NewStyle().Foreground(lavender).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(rose)
	pendingStyle   = lipgloss.NewStyle().Foreground(cyan)
)

// =============================================================================
// RENDERER
// =============================================================================

// Renderer formats responses and listings for one output stream.
type Renderer struct {
	markdown *glamour.TermRenderer

	// ShowCost appends the cost figure to stats lines.
	ShowCost bool
	// ShowTokens appends token counts to stats lines.
	ShowTokens bool
	// ShowReasoning prints the model's reasoning above the response.
	ShowReasoning bool
}

// New creates a renderer. Markdown rendering is enabled only when requested
// AND stdout is a terminal; theme selects the glamour style.
func New(markdown bool, theme string) *Renderer {
	r := &Renderer{ShowCost: true, ShowTokens: true}
	if !markdown || !IsStdoutTTY() {
		return r
	}

	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(wrapWidth()),
	}
	switch theme {
	case "dark", "light":
		opts = append(opts, glamour.WithStandardStyle(theme))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		// Fall back to plain text if renderer initialization fails.
		return r
	}
	r.markdown = renderer
	return r
}

func wrapWidth() int {
	width := TerminalWidth()
	if width > 100 {
		width = 100
	}
	return width
}

// Markdown renders markdown content for terminal display. Returns the
// original content when rendering is unavailable or fails.
func (r *Renderer) Markdown(content string) string {
	if r.markdown == nil {
		return content
	}
	rendered, err := r.markdown.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// RESPONSE OUTPUT
// =============================================================================

// Response prints an assistant message: optional reasoning, the content,
// and a stats line when stdout is a terminal.
func (r *Renderer) Response(msg model.ChatMessage) {
	if r.ShowReasoning && msg.Reasoning != "" && IsStdoutTTY() {
		fmt.Println(reasoningStyle.Render(msg.Reasoning))
		fmt.Println()
	}

	out := msg.Content
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	fmt.Print(r.Markdown(out))

	if IsStdoutTTY() {
		if line := r.statsLine(msg); line != "" {
			fmt.Println(statsStyle.Render(line))
		}
	}
}

// statsLine builds the one-line footer: model, tokens, cost, elapsed.
func (r *Renderer) statsLine(msg model.ChatMessage) string {
	var parts []string
	if msg.ModelID != "" {
		parts = append(parts, msg.ModelID)
	}
	if r.ShowTokens && !msg.Tokens.IsZero() {
		if msg.Tokens.InputCacheHit > 0 {
			parts = append(parts, fmt.Sprintf("%d in (%d cached) / %d out",
				msg.Tokens.Input, msg.Tokens.InputCacheHit, msg.Tokens.Output))
		} else {
			parts = append(parts, fmt.Sprintf("%d in / %d out",
				msg.Tokens.Input, msg.Tokens.Output))
		}
	}
	if r.ShowCost && msg.Cost > 0 {
		parts = append(parts, FormatCost(msg.Cost))
	}
	if msg.ElapsedMs > 0 {
		parts = append(parts, fmt.Sprintf("%.1fs", float64(msg.ElapsedMs)/1000))
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " | ") + "]"
}

// Error prints an error message to stderr, styled when stderr is a terminal.
func Error(err error) {
	msg := "Error: " + err.Error()
	if term.IsTerminal(int(os.Stderr.Fd())) {
		msg = errorStyle.Render(msg)
	}
	fmt.Fprintln(os.Stderr, msg)
}

// Info prints a status line to stderr so it never contaminates piped output.
func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		msg = pendingStyle.Render(msg)
	}
	fmt.Fprintln(os.Stderr, msg)
}

// Prompt returns the styled REPL prompt for the given model key.
func Prompt(modelKey string) string {
	if !IsStdoutTTY() {
		return modelKey + "> "
	}
	return promptStyle.Render(modelKey) + promptStyle.Render("> ")
}

// =============================================================================
// LISTINGS
// =============================================================================

// FormatCost renders a dollar amount with enough precision for sub-cent
// API prices.
func FormatCost(cost float64) string {
	if cost >= 0.01 || cost == 0 {
		return fmt.Sprintf("$%.2f", cost)
	}
	return fmt.Sprintf("$%.4f", cost)
}

// ModelTable formats the model catalog as an aligned table, grouped in
// catalog order with the default marked.
func ModelTable(models []catalog.Model) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-12s %-28s %10s %10s %s\n",
		"PROVIDER", "MODEL", "IN/MTOK", "OUT/MTOK", ""))

	for _, m := range models {
		marker := ""
		if m.Default {
			marker = "(default)"
		}
		sb.WriteString(fmt.Sprintf("%-12s %-28s %10s %10s %s\n",
			m.Provider, m.Key,
			fmt.Sprintf("$%.2f", m.InputPerMTok),
			fmt.Sprintf("$%.2f", m.OutputPerMTok),
			marker))
	}
	return sb.String()
}

// ChatListEntry is one row of a history listing.
type ChatListEntry struct {
	ID           string
	Label        string
	MessageCount int
	TotalCost    float64
	Pending      bool
}

// ChatList formats chat history rows for the history command.
func ChatList(entries []ChatListEntry) string {
	if len(entries) == 0 {
		return "No chats found.\n"
	}

	var sb strings.Builder
	for i, e := range entries {
		pending := ""
		if e.Pending {
			pending = " [task pending]"
		}
		sb.WriteString(fmt.Sprintf("%3d. %-14s %3d msgs  %8s  %s%s\n",
			i+1, shortID(e.ID), e.MessageCount, FormatCost(e.TotalCost),
			e.Label, pending))
	}
	return sb.String()
}

// shortID truncates a chat ID for display.
func shortID(id string) string {
	if len(id) > 13 {
		return id[:13]
	}
	return id
}
