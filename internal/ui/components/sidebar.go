// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/jeranaias/augchat/internal/storage"
	"github.com/jeranaias/augchat/internal/ui/styles"
	"github.com/jeranaias/augchat/internal/util"
)

// SidebarWidth is the column width of the session list, border included.
const SidebarWidth = 28

// Sidebar lists stored chats with a selection cursor.
type Sidebar struct {
	sessions []storage.ConversationMeta
	cursor   int
	activeID string
	theme    *styles.Theme
}

// NewSidebar creates an empty Sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{theme: theme}
}

// SetSessions replaces the list, keeping the cursor in range.
func (s *Sidebar) SetSessions(sessions []storage.ConversationMeta) {
	s.sessions = sessions
	if s.cursor >= len(sessions) {
		s.cursor = len(sessions) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// SetActive marks the chat currently open.
func (s *Sidebar) SetActive(id string) {
	s.activeID = id
}

// Up moves the cursor up.
func (s *Sidebar) Up() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// Down moves the cursor down.
func (s *Sidebar) Down() {
	if s.cursor < len(s.sessions)-1 {
		s.cursor++
	}
}

// Selected returns the session under the cursor.
func (s *Sidebar) Selected() (storage.ConversationMeta, bool) {
	if len(s.sessions) == 0 {
		return storage.ConversationMeta{}, false
	}
	return s.sessions[s.cursor], true
}

// View renders the list into height rows.
func (s *Sidebar) View(height int) string {
	inner := SidebarWidth - 3
	lines := []string{s.theme.HeaderTitle.Render("Chats")}
	if len(s.sessions) == 0 {
		lines = append(lines, s.theme.SessionMeta.Render("no saved chats"))
	}

	// Scroll so the cursor stays visible; each entry takes two rows
	visible := (height - 2) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}
	for i := start; i < len(s.sessions) && i < start+visible; i++ {
		meta := s.sessions[i]
		marker := "  "
		if meta.ID == s.activeID {
			marker = "* "
		}
		title := marker + util.TruncateWidth(util.SingleLine(meta.Title), inner-2)
		style := s.theme.SessionItem
		if i == s.cursor {
			style = s.theme.SessionItemSelected
		}
		lines = append(lines, style.Render(title))
		lines = append(lines, s.theme.SessionMeta.Render("  "+meta.UpdatedAt.Format("Jan 02 15:04")+" "+strconv.Itoa(meta.MessageCount)+" msgs"))
	}

	return s.theme.Sidebar.
		Width(SidebarWidth - 1).
		Height(height).
		Render(strings.Join(lines, "\n"))
}
