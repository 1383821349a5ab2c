// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/augchat/internal/commands"
	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/session"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m *Model, args []string) tea.Cmd

// commandHandlers maps canonical command names to their handlers.
var commandHandlers = map[string]CommandHandler{
	commands.Help:     handleHelpCommand,
	commands.Quit:     handleQuitCommand,
	commands.Clear:    handleClearCommand,
	commands.New:      handleNewCommand,
	commands.Persona:  handlePersonaCommand,
	commands.Personas: handlePersonasCommand,
	commands.Copy:     handleCopyCommand,
	commands.Chats:    handleChatsCommand,
	commands.Open:     handleOpenCommand,
	commands.Press:    handlePressCommand,
}

var (
	commandRegistry = commands.NewRegistry()
	commandParser   = commands.NewParser(commandRegistry)
)

// runCommand dispatches "/name args...".
func (m *Model) runCommand(line string) tea.Cmd {
	res := commandParser.Parse(line)
	if res.CommandName == "" {
		return nil
	}
	if res.Command == nil {
		m.toasts.AddError("Unknown command " + res.CommandName + ", try /help")
		return nil
	}
	if err := commands.ValidateArgs(res.Command, res.Args); err != nil {
		m.toasts.AddError(err.Error())
		return nil
	}
	handler, ok := commandHandlers[res.Command.Name]
	if !ok {
		return nil
	}
	return handler(m, res.Args)
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelpCommand(m *Model, _ []string) tea.Cmd {
	m.toasts.AddStatus("Commands: " + strings.Join(commandRegistry.Usages(true), " ") + ". Keys: " + strings.Join(m.keys.HelpLines(), ", "))
	m.layout()
	return nil
}

func handleQuitCommand(m *Model, _ []string) tea.Cmd {
	m.cancel()
	return tea.Quit
}

func handleClearCommand(m *Model, _ []string) tea.Cmd {
	return m.clear()
}

// handleNewCommand starts a new chat with the current persona.
func handleNewCommand(m *Model, _ []string) tea.Cmd {
	conv := model.NewConversation(m.ctrl.Persona())
	if err := m.ctrl.Load(conv); err != nil {
		m.toasts.AddStatus("Wait for the reply to finish")
		return nil
	}
	return m.handleEvent(session.Event{Type: session.EventCleared})
}

// handlePersonaCommand switches the persona of the open chat.
func handlePersonaCommand(m *Model, args []string) tea.Cmd {
	if len(args) == 0 {
		return handlePersonasCommand(m, nil)
	}
	p, ok := m.personas.Get(args[0])
	if !ok {
		m.toasts.AddError("Unknown persona " + args[0])
		return nil
	}
	m.ctrl.SetPersona(p)
	m.rendered = make(map[string]string)
	m.syncConversation()
	m.refresh()
	m.toasts.AddStatus("Now chatting with " + p.DisplayName())
	return nil
}

func handlePersonasCommand(m *Model, _ []string) tea.Cmd {
	current := m.ctrl.Persona().ID
	ids := m.personas.IDs()
	for i, id := range ids {
		if id == current {
			ids[i] = id + "*"
		}
	}
	m.toasts.AddStatus("Personas: " + strings.Join(ids, " "))
	return nil
}

func handleCopyCommand(m *Model, _ []string) tea.Cmd {
	return m.copyLast()
}

func handleChatsCommand(m *Model, _ []string) tea.Cmd {
	if m.store == nil {
		m.toasts.AddStatus("No chat storage configured")
		return nil
	}
	m.showSidebar = !m.showSidebar
	m.layout()
	m.refresh()
	if m.showSidebar {
		return loadSessions(m.store)
	}
	return nil
}

// handleOpenCommand opens a stored chat by ID.
func handleOpenCommand(m *Model, args []string) tea.Cmd {
	if m.store == nil {
		m.toasts.AddStatus("No chat storage configured")
		return nil
	}
	if m.ctrl.Busy() {
		m.toasts.AddStatus("Wait for the reply to finish")
		return nil
	}
	return loadConversation(m.store, args[0])
}

// handlePressCommand presses the newest response button.
func handlePressCommand(m *Model, _ []string) tea.Cmd {
	if len(m.buttons()) == 0 {
		m.toasts.AddStatus("No button to press")
		return nil
	}
	m.buttonFocus = 0
	return m.pressButton()
}
