// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders message content with glamour. The renderer is
// rebuilt only when the wrap width changes.
type MarkdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer for a glamour standard style
// ("dark", "light", "notty").
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	return &MarkdownRenderer{style: style}
}

// Render renders content wrapped at width. It falls back to the raw content
// when glamour fails.
func (m *MarkdownRenderer) Render(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	if width < 10 {
		width = 10
	}
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		m.renderer = r
		m.width = width
	}

	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
