// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/session"
	"github.com/jeranaias/augchat/internal/storage"
)

// =============================================================================
// CONTROLLER MESSAGES
// =============================================================================

// EventMsg carries a controller event into the Bubble Tea loop. Content
// events bypass it and go through the ContentBuffer.
type EventMsg struct {
	Event session.Event
}

// RedirectMsg asks the user to log in at URL.
type RedirectMsg struct {
	URL string
}

// RefreshMsg asks for the history to be redrawn.
type RefreshMsg struct{}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionsMsg carries the stored chat list for the sidebar.
type SessionsMsg struct {
	Sessions []storage.ConversationMeta
	Err      error
}

// LoadedMsg carries a stored chat selected in the sidebar.
type LoadedMsg struct {
	Conversation *model.Conversation
	Err          error
}

// CopiedMsg reports a clipboard copy.
type CopiedMsg struct {
	Err error
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForEvent delivers the next queued controller message.
func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func loadSessions(store storage.Store) tea.Cmd {
	return func() tea.Msg {
		if store == nil {
			return SessionsMsg{}
		}
		sessions, err := store.List()
		return SessionsMsg{Sessions: sessions, Err: err}
	}
}

func loadConversation(store storage.Store, id string) tea.Cmd {
	return func() tea.Msg {
		conv, err := store.Load(id)
		return LoadedMsg{Conversation: conv, Err: err}
	}
}
