// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/ui/styles"
	"github.com/jeranaias/augchat/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar: persona avatar and name on the left, the chat
// title on the right.
type Header struct {
	Persona model.Persona
	Title   string
	Width   int
	theme   *styles.Theme
}

// NewHeader creates a Header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{Width: 80, theme: theme}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetPersona updates the persona shown.
func (h *Header) SetPersona(p model.Persona) {
	h.Persona = p
}

// SetTitle updates the chat title shown.
func (h *Header) SetTitle(title string) {
	h.Title = title
}

// View renders the header.
func (h *Header) View() string {
	avatar := h.Persona.Avatar
	if avatar == "" {
		avatar = "*"
	}
	left := h.theme.HeaderAvatar.Render(avatar) + " " + h.theme.HeaderTitle.Render(h.Persona.DisplayName())
	if h.Persona.Role != "" {
		left += " " + h.theme.HeaderSubtitle.Render(h.Persona.Role)
	}

	inner := h.Width - 2
	if inner < 1 {
		return h.theme.Header.Render(left)
	}

	// Drop the title first when space runs out
	space := inner - lipgloss.Width(left) - 2
	right := ""
	if h.Title != "" && space > 4 {
		right = h.theme.HeaderSubtitle.Render(util.TruncateWidth(h.Title, space))
	}
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	row := left + lipgloss.NewStyle().Width(gap).Render("") + right
	return h.theme.Header.Width(h.Width).MaxWidth(h.Width).Render(row)
}
