// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/augchat/internal/ui/styles"
)

// Shortcut is a key hint in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// DefaultShortcuts are shown while idle.
var DefaultShortcuts = []Shortcut{
	{"enter", "send"},
	{"tab", "button"},
	{"ctrl+b", "chats"},
	{"ctrl+y", "copy"},
	{"ctrl+l", "clear"},
	{"ctrl+c", "quit"},
}

// StatusBar is the bottom line: state on the left, shortcuts on the right.
type StatusBar struct {
	State     string
	Shortcuts []Shortcut
	Width     int
	theme     *styles.Theme
}

// NewStatusBar creates a StatusBar with the default shortcuts.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Shortcuts: DefaultShortcuts, Width: 80, theme: theme}
}

// View renders the status bar. Shortcuts are dropped from the end until
// the line fits.
func (s *StatusBar) View() string {
	left := s.State
	inner := s.Width - 2

	hints := make([]string, 0, len(s.Shortcuts))
	for _, sc := range s.Shortcuts {
		hints = append(hints, s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDesc.Render(sc.Desc))
	}
	right := strings.Join(hints, "  ")
	for len(hints) > 0 && lipgloss.Width(left)+lipgloss.Width(right)+2 > inner {
		hints = hints[:len(hints)-1]
		right = strings.Join(hints, "  ")
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return s.theme.StatusBar.Width(s.Width).MaxWidth(s.Width).
		Render(left + strings.Repeat(" ", gap) + right)
}
