// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/session"
	"github.com/jeranaias/augchat/internal/ui/components"
	"github.com/jeranaias/augchat/internal/ui/styles"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.rendered = make(map[string]string)
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameTickMsg:
		return m.handleFrame(msg)

	case components.ToastTickMsg:
		m.toasts.Tick()
		if n := m.toasts.Len(); n != m.toastCount {
			m.toastCount = n
			m.layout()
		}
		return m, components.ToastTickCmd()

	case EventMsg:
		cmd := m.handleEvent(msg.Event)
		return m, tea.Batch(cmd, waitForEvent(m.queue))

	case RedirectMsg:
		m.loginURL = msg.URL
		m.layout()
		return m, waitForEvent(m.queue)

	case RefreshMsg:
		m.syncConversation()
		m.refresh()
		return m, waitForEvent(m.queue)

	case SessionsMsg:
		if msg.Err != nil {
			m.toasts.AddError("Could not list chats: " + msg.Err.Error())
			return m, nil
		}
		m.sidebar.SetSessions(msg.Sessions)
		return m, nil

	case LoadedMsg:
		if msg.Err != nil {
			m.toasts.AddError("Could not open chat: " + msg.Err.Error())
			return m, nil
		}
		if err := m.ctrl.Load(msg.Conversation); err != nil {
			m.toasts.AddError(err.Error())
			return m, nil
		}
		return m, m.handleEvent(session.Event{Type: session.EventCleared})

	case CopiedMsg:
		if msg.Err != nil {
			m.toasts.AddError("Copy failed: " + msg.Err.Error())
		} else {
			m.toasts.AddStatus("Copied last reply")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Sidebar):
		cmd := handleChatsCommand(&m, nil)
		return m, cmd

	case key.Matches(msg, m.keys.Clear):
		cmd := m.clear()
		return m, cmd

	case key.Matches(msg, m.keys.Copy):
		cmd := m.copyLast()
		return m, cmd

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.FocusButton):
		m.cycleButtonFocus()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		switch {
		case m.buttonFocus >= 0:
			m.buttonFocus = -1
			m.input.Focus()
			m.refresh()
		case m.loginURL != "":
			m.loginURL = ""
			m.layout()
		case m.showSidebar:
			m.showSidebar = false
			m.layout()
			m.refresh()
		}
		return m, nil
	}

	// The sidebar takes the arrows while it is open
	if m.showSidebar {
		switch {
		case key.Matches(msg, m.keys.Up):
			m.sidebar.Up()
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.sidebar.Down()
			return m, nil
		case key.Matches(msg, m.keys.Submit) && strings.TrimSpace(m.input.Value()) == "" && m.buttonFocus < 0:
			cmd := m.openSelected()
			return m, cmd
		}
	}

	if key.Matches(msg, m.keys.Submit) {
		if m.buttonFocus >= 0 {
			cmd := m.pressButton()
			return m, cmd
		}
		cmd := m.submit()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input, or runs it as a slash command.
func (m *Model) submit() tea.Cmd {
	value := m.input.Value()
	if strings.HasPrefix(strings.TrimSpace(value), "/") {
		m.input.Reset()
		return m.runCommand(strings.TrimSpace(value))
	}

	err := m.ctrl.Submit(m.ctx, value)
	switch {
	case err == nil:
		m.input.Reset()
		m.loginURL = ""
		m.layout()
	case errors.Is(err, session.ErrBusy):
		m.toasts.AddStatus("Wait for the reply to finish")
	case errors.Is(err, session.ErrEmptyInput):
		// The controller already notified
	default:
		m.toasts.AddError(err.Error())
	}
	m.syncConversation()
	m.refresh()
	return nil
}

// pressButton submits the focused response button.
func (m *Model) pressButton() tea.Cmd {
	buttons := m.buttons()
	if m.buttonFocus >= len(buttons) {
		m.buttonFocus = -1
		return nil
	}
	b := buttons[m.buttonFocus].Augmentation.(augment.ResponseButton)
	if err := m.ctrl.ClickButton(m.ctx, b); err != nil {
		if errors.Is(err, session.ErrBusy) {
			m.toasts.AddStatus("Wait for the reply to finish")
		} else {
			m.toasts.AddError(err.Error())
		}
		return nil
	}
	m.buttonFocus = -1
	m.syncConversation()
	m.refresh()
	return nil
}

// buttons returns the messages carrying a response button, newest first.
func (m Model) buttons() []model.Message {
	msgs := m.ctrl.Snapshot()
	var out []model.Message
	for i := len(msgs) - 1; i >= 0; i-- {
		if _, ok := msgs[i].Augmentation.(augment.ResponseButton); ok {
			out = append(out, msgs[i])
		}
	}
	return out
}

func (m *Model) cycleButtonFocus() {
	n := len(m.buttons())
	if n == 0 || m.ctrl.Busy() {
		m.buttonFocus = -1
		return
	}
	m.buttonFocus++
	if m.buttonFocus >= n {
		m.buttonFocus = -1
	}
	if m.buttonFocus >= 0 {
		m.input.Blur()
	} else {
		m.input.Focus()
	}
}

func (m *Model) clear() tea.Cmd {
	if err := m.ctrl.Clear(); err != nil {
		m.toasts.AddStatus("Wait for the reply to finish")
		return nil
	}
	m.handleEvent(session.Event{Type: session.EventCleared})
	if m.showSidebar {
		return loadSessions(m.store)
	}
	return nil
}

func (m *Model) copyLast() tea.Cmd {
	conv := m.ctrl.Conversation()
	last, ok := conv.LastAssistant()
	if !ok {
		m.toasts.AddStatus("Nothing to copy yet")
		return nil
	}
	write := m.copyText
	return func() tea.Msg {
		return CopiedMsg{Err: write(last.Content)}
	}
}

func (m *Model) openSelected() tea.Cmd {
	meta, ok := m.sidebar.Selected()
	if !ok || m.store == nil {
		return nil
	}
	if m.ctrl.Busy() {
		m.toasts.AddStatus("Wait for the reply to finish")
		return nil
	}
	return loadConversation(m.store, meta.ID)
}

// =============================================================================
// FRAMES
// =============================================================================

func (m Model) handleFrame(msg frameTickMsg) (tea.Model, tea.Cmd) {
	m.frame++
	dirty := false

	if content, ok := m.buffer.Flush(); ok && m.state.Busy() {
		m.live = content
		dirty = true
	}
	if m.state.Busy() {
		// Spinner frames
		dirty = true
	}
	if m.effectID != "" {
		frame := int(msg.Time.Sub(m.effectStart) * styles.EffectFPS / time.Second)
		if frame != m.effectFrame {
			m.effectFrame = frame
			dirty = true
		}
		if m.effectDone() {
			m.effectID = ""
		}
	}
	if dirty {
		m.refresh()
	}
	return m, frameTick(m.buffer.Interval())
}

func (m Model) effectDone() bool {
	for _, msg := range m.ctrl.Snapshot() {
		if msg.ID != m.effectID {
			continue
		}
		if a, ok := msg.Augmentation.(augment.Animation); ok {
			return styles.EffectDone(string(a.Effect), m.effectFrame)
		}
	}
	return true
}

// =============================================================================
// CONTROLLER EVENTS
// =============================================================================

func (m *Model) handleEvent(e session.Event) tea.Cmd {
	var cmd tea.Cmd
	stale := e.Seq != 0 && e.Seq < m.sendSeq
	if e.Seq > m.sendSeq {
		m.sendSeq = e.Seq
	}
	switch e.Type {
	case session.EventStateChanged:
		if stale {
			break
		}
		m.state = e.State
		if e.State == session.StateSending {
			m.live = ""
			m.augmenting = false
			m.buttonFocus = -1
			m.input.Focus()
		}
		if e.State == session.StateIdle {
			m.buffer.Reset()
			m.live = ""
			m.augmenting = false
		}

	case session.EventAugmentationStarted:
		if stale {
			break
		}
		m.augmenting = true
		// Show the last content frame before the augmentation arrives
		if content, ok := m.buffer.ForceFlush(); ok {
			m.live = content
		}

	case session.EventCommitted:
		if content, ok := m.buffer.ForceFlush(); ok && !stale {
			m.live = content
		}
		if _, ok := e.Message.Augmentation.(augment.Animation); ok {
			m.effectID = e.Message.ID
			m.effectStart = time.Now()
			m.effectFrame = 0
		}
		m.syncConversation()
		if m.showSidebar {
			cmd = loadSessions(m.store)
		}

	case session.EventFailed:
		if !stale {
			m.buffer.Reset()
			m.live = ""
		}
		m.syncConversation()

	case session.EventCleared:
		m.buffer.Reset()
		m.live = ""
		m.buttonFocus = -1
		m.effectID = ""
		m.rendered = make(map[string]string)
		m.syncConversation()
	}
	m.refresh()
	return cmd
}

// syncConversation updates the header and sidebar from the controller.
func (m *Model) syncConversation() {
	conv := m.ctrl.Conversation()
	m.header.SetPersona(conv.Persona)
	m.header.SetTitle(conv.GetTitle())
	m.sidebar.SetActive(conv.ID)
}
