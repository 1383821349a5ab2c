// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/session"
	"github.com/jeranaias/augchat/internal/ui/components"
	"github.com/jeranaias/augchat/internal/ui/styles"
)

// =============================================================================
// LAYOUT
// =============================================================================

// chatWidth is the width left for the message column.
func (m Model) chatWidth() int {
	w := m.width
	if m.showSidebar {
		w -= components.SidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// layout sizes the viewport from the window and the chrome around it.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	w := m.chatWidth()
	m.header.SetWidth(w)
	m.status.Width = w
	m.input.Width = w - 4

	chrome := 1 + 1 + 2 // header, status bar, input with its top border
	if m.loginURL != "" {
		chrome++
	}
	if m.toastCount > 0 {
		chrome += lipgloss.Height(components.RenderToasts(m.theme, m.toasts.Tick(), w))
	}
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	if m.viewport.Width != w {
		m.rendered = make(map[string]string)
	}
	m.viewport.Width = w
	m.viewport.Height = h
}

// =============================================================================
// HISTORY RENDERING
// =============================================================================

// refresh rebuilds the viewport content, following the bottom when the user
// has not scrolled up.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() <= m.viewport.Height
	m.viewport.SetContent(m.renderHistory())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderHistory() string {
	conv := m.ctrl.Conversation()
	bubble := components.MessageBubble{
		Theme:    m.theme,
		Markdown: m.markdown,
		Persona:  conv.Persona,
		Width:    m.viewport.Width,
	}

	var focusedID string
	if m.buttonFocus >= 0 {
		if buttons := m.buttons(); m.buttonFocus < len(buttons) {
			focusedID = buttons[m.buttonFocus].ID
		}
	}

	parts := make([]string, 0, len(conv.Messages)+1)
	if len(conv.Messages) == 0 && !m.state.Busy() {
		parts = append(parts, m.theme.Muted.Render(m.emptyHint(conv.Persona)))
	}
	for _, msg := range conv.Messages {
		parts = append(parts, m.renderMessage(bubble, msg, focusedID))
	}
	if m.state.Busy() {
		parts = append(parts, bubble.RenderStreaming(m.live, m.indicator()))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderMessage(bubble components.MessageBubble, msg model.Message, focusedID string) string {
	view := components.AugmentationView{
		Theme:   m.theme,
		Charts:  m.charts,
		Width:   m.viewport.Width - 8,
		Focused: msg.ID == focusedID,
		// Effects that are not playing hold their last frame
		Frame: 1 << 16,
	}
	if msg.ID == m.effectID {
		view.Frame = m.effectFrame
	}
	extra := view.Render(msg.Augmentation)

	// Cache plain bodies; augmented ones change with focus and frames
	if extra == "" {
		if out, ok := m.rendered[msg.ID]; ok && msg.ID != "" {
			return out
		}
	}
	out := bubble.Render(msg, extra)
	if extra == "" && msg.ID != "" {
		m.rendered[msg.ID] = out
	}
	return out
}

// indicator describes the in-flight phase under the live bubble.
func (m Model) indicator() string {
	switch {
	case m.state == session.StateSending:
		return m.theme.Spinner.Render(styles.DotsSpinner.Frame(m.frame))
	case m.augmenting || m.state == session.StateStreamingAugmentation || m.state == session.StateCommitting:
		return m.theme.Spinner.Render(styles.LineSpinner.Frame(m.frame)) + " " + m.theme.Muted.Render("preparing")
	}
	return ""
}

func (m Model) emptyHint(p model.Persona) string {
	return "Say hello to " + p.DisplayName() + ". Type /help for commands."
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	m.status.State = m.statusText()

	rows := []string{m.header.View(), m.viewport.View()}
	if m.loginURL != "" {
		rows = append(rows, m.theme.ToastError.UnsetBorderStyle().Render("Login required: "+m.loginURL+" (esc to dismiss)"))
	}
	if toasts := components.RenderToasts(m.theme, m.toasts.Tick(), m.chatWidth()); toasts != "" {
		rows = append(rows, toasts)
	}
	rows = append(rows, m.theme.InputContainer.Width(m.chatWidth()).Render(m.input.View()), m.status.View())
	main := lipgloss.JoinVertical(lipgloss.Left, rows...)

	if !m.showSidebar {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(m.height), main)
}

func (m Model) statusText() string {
	switch {
	case m.buttonFocus >= 0:
		return "button focused: enter to send"
	case m.state.Busy():
		return m.state.String()
	default:
		return "ready"
	}
}
