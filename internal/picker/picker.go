// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package picker provides an interactive chat selector for the terminal.
//
// The picker is a small Bubble Tea program: arrow keys or j/k move the
// cursor, enter selects, esc or q cancels. It is used by the resume
// command when no chat ID is given and stdin is a terminal.
package picker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user dismisses the picker.
var ErrCancelled = errors.New("selection cancelled")

// Item is one selectable row.
type Item struct {
	// ID is returned on selection.
	ID string
	// Title is the primary label (summary or first-message preview).
	Title string
	// Detail is the dimmed annotation (message count, cost, pending task).
	Detail string
}

// =============================================================================
// KEY BINDINGS
// =============================================================================

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "q", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
}

// =============================================================================
// STYLES
// =============================================================================

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"})
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"})
	selectedStyle = lipgloss.NewStyle().Bold(true)
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"})
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"})
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat picker.
type Model struct {
	title  string
	items  []Item
	cursor int

	// Result
	selected  string
	cancelled bool
}

// NewModel creates a picker model over the given items.
func NewModel(title string, items []Item) Model {
	return Model{title: title, items: items}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, keys.Select):
		if len(m.items) > 0 {
			m.selected = m.items[m.cursor].ID
		}
		return m, tea.Quit
	case key.Matches(keyMsg, keys.Quit):
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	if len(m.items) == 0 {
		sb.WriteString(detailStyle.Render("(nothing to select)"))
		sb.WriteString("\n")
	}

	for i, item := range m.items {
		cursor := "  "
		line := item.Title
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
			line = selectedStyle.Render(line)
		}
		sb.WriteString(fmt.Sprintf("%s%s  %s\n", cursor, line, detailStyle.Render(item.Detail)))
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("↑/↓ move · enter select · esc cancel"))
	sb.WriteString("\n")
	return sb.String()
}

// Selected returns the chosen item ID, or false when nothing was chosen.
func (m Model) Selected() (string, bool) {
	if m.cancelled || m.selected == "" {
		return "", false
	}
	return m.selected, true
}

// =============================================================================
// RUN
// =============================================================================

// Pick runs the picker full-screen and returns the selected item ID.
// Returns ErrCancelled when the user dismisses it.
func Pick(title string, items []Item) (string, error) {
	program := tea.NewProgram(NewModel(title, items))
	final, err := program.Run()
	if err != nil {
		return "", err
	}

	m, ok := final.(Model)
	if !ok {
		return "", errors.New("unexpected picker model type")
	}
	id, ok := m.Selected()
	if !ok {
		return "", ErrCancelled
	}
	return id, nil
}
