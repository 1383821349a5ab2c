// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders chat messages as labelled bubbles.
type MessageBubble struct {
	Theme    *styles.Theme
	Markdown *MarkdownRenderer
	Persona  model.Persona
	Width    int
}

// label returns the speaker line for role.
func (b MessageBubble) label(role model.Role) string {
	name := role.DisplayName()
	if role == model.RoleAssistant {
		name = b.Persona.DisplayName()
		if b.Persona.Avatar != "" {
			name = b.Persona.Avatar + " " + name
		}
	}
	return b.Theme.RoleLabel.Render(name)
}

// bodyWidth is the wrap width inside a bubble: border, padding and margin
// take eight columns.
func (b MessageBubble) bodyWidth() int {
	w := b.Width - 8
	if w < 10 {
		w = 10
	}
	return w
}

// Render draws a committed message. extra is appended inside the bubble,
// below the content (the rendered augmentation).
func (b MessageBubble) Render(msg model.Message, extra string) string {
	body := msg.Content
	if msg.Role == model.RoleAssistant && b.Markdown != nil {
		body = b.Markdown.Render(body, b.bodyWidth())
	} else {
		body = lipgloss.NewStyle().Width(b.bodyWidth()).Render(body)
	}
	if extra != "" {
		if strings.TrimSpace(body) == "" {
			body = extra
		} else {
			body += "\n\n" + extra
		}
	}

	header := b.label(msg.Role)
	if !msg.Timestamp.IsZero() {
		header += " " + b.Theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}
	return header + "\n" + b.Theme.BubbleStyle(string(msg.Role)).Render(body)
}

// RenderStreaming draws the transient assistant bubble. The content is
// wrapped but not parsed as markdown, since partial markdown reflows.
func (b MessageBubble) RenderStreaming(content, indicator string) string {
	body := lipgloss.NewStyle().Width(b.bodyWidth()).Render(content + b.Theme.Cursor.Render("_"))
	if indicator != "" {
		body += "\n" + indicator
	}
	return b.label(model.RoleAssistant) + "\n" + b.Theme.AssistantBubble.Render(body)
}
