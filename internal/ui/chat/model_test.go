// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/chatapi"
	"github.com/jeranaias/augchat/internal/session"
	"github.com/jeranaias/augchat/internal/storage"
	"github.com/jeranaias/augchat/internal/ui/styles"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// HELPERS
// =============================================================================

// scriptedSender answers each request with the next reply, repeating the
// last one once the script runs out.
type scriptedSender struct {
	mu      sync.Mutex
	replies []string
	err     error
	inputs  []string
}

func (s *scriptedSender) Stream(_ context.Context, req chatapi.Request) (*chatapi.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, req.Input)
	if s.err != nil {
		return nil, s.err
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return chatapi.NewResponse(200, io.NopCloser(strings.NewReader(reply)), 4), nil
}

func (s *scriptedSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.inputs...)
}

func newTestModel(t *testing.T, sender session.Sender, store storage.Store) Model {
	t.Helper()
	m := New(Options{
		Sender:      sender,
		Store:       store,
		Theme:       styles.NewTheme(styles.ModeDark),
		FPS:         60,
		CommitDelay: time.Millisecond,
		ShowSidebar: store != nil,
		Logger:      zerolog.Nop(),
	})
	t.Cleanup(m.Close)
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

// settle waits for the in-flight send and feeds every queued message and
// the pending content back through Update.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	m.ctrl.Wait()
	for {
		select {
		case msg := <-m.queue:
			m = update(t, m, msg)
		default:
			return update(t, m, frameTickMsg{Time: time.Now()})
		}
	}
}

func typeAndSubmit(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func toastMessages(m Model) []string {
	var out []string
	for _, toast := range m.toasts.Tick() {
		out = append(out, toast.Message)
	}
	return out
}

// =============================================================================
// SEND CYCLE
// =============================================================================

func TestModel_SubmitCommitsReply(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"Hello there"}}, nil)

	m = typeAndSubmit(t, m, "hi")
	assert.Empty(t, m.input.Value())

	m = settle(t, m)
	msgs := m.ctrl.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "Hello there", msgs[1].Content)
	assert.Equal(t, session.StateIdle, m.state)
	assert.Empty(t, m.live)
	assert.Equal(t, "ready", m.statusText())
}

func TestModel_EmptyInputIsNotSent(t *testing.T) {
	sender := &scriptedSender{replies: []string{"unused"}}
	m := newTestModel(t, sender, nil)

	m = typeAndSubmit(t, m, "   ")
	m = settle(t, m)

	assert.Empty(t, sender.sent())
	assert.Empty(t, m.ctrl.Snapshot())
	assert.NotEmpty(t, toastMessages(m))
}

func TestModel_ContentBufferFeedsLiveBubble(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"unused"}}, nil)

	m.state = session.StateStreamingContent
	m.buffer.Set("partial reply")
	m = update(t, m, frameTickMsg{Time: time.Now()})

	assert.Equal(t, "partial reply", m.live)
}

// =============================================================================
// AUGMENTATIONS
// =============================================================================

func TestModel_ButtonFocusAndPress(t *testing.T) {
	sender := &scriptedSender{replies: []string{
		`Pick one:O^%^£O{"augmentation":"response-button","data":{"buttonText":"Yes","responseText":"I choose yes"}}`,
		"Noted",
	}}
	m := newTestModel(t, sender, nil)

	m = settle(t, typeAndSubmit(t, m, "ask me"))
	msgs := m.ctrl.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, augment.ResponseButton{ButtonText: "Yes", ResponseText: "I choose yes"}, msgs[1].Augmentation)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.buttonFocus)
	assert.Equal(t, "button focused: enter to send", m.statusText())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, -1, m.buttonFocus)

	m = settle(t, m)
	assert.Equal(t, []string{"ask me", "I choose yes"}, sender.sent())
	msgs = m.ctrl.Snapshot()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Noted", msgs[3].Content)
}

func TestModel_TabWithoutButtonsKeepsInputFocus(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"plain"}}, nil)
	m = settle(t, typeAndSubmit(t, m, "hi"))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, -1, m.buttonFocus)
	assert.True(t, m.input.Focused())
}

func TestModel_EscapeReleasesButtonFocus(t *testing.T) {
	sender := &scriptedSender{replies: []string{
		`ok O^%^£O{"augmentation":"response-button","data":{"buttonText":"Go","responseText":"go"}}`,
	}}
	m := newTestModel(t, sender, nil)
	m = settle(t, typeAndSubmit(t, m, "hi"))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, 0, m.buttonFocus)
	assert.False(t, m.input.Focused())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, -1, m.buttonFocus)
	assert.True(t, m.input.Focused())
}

func TestModel_AnimationPlaysThenStops(t *testing.T) {
	sender := &scriptedSender{replies: []string{`Great job!O^%^£O{"augmentation":"animation","data":"Success"}`}}
	m := newTestModel(t, sender, nil)

	m = settle(t, typeAndSubmit(t, m, "done"))
	msgs := m.ctrl.Snapshot()
	require.Len(t, msgs, 2)
	require.Equal(t, msgs[1].ID, m.effectID)

	m = update(t, m, frameTickMsg{Time: m.effectStart.Add(time.Minute)})
	assert.Empty(t, m.effectID)
}

func TestModel_InvalidAugmentationCommitsContentOnly(t *testing.T) {
	sender := &scriptedSender{replies: []string{`Here you goO^%^£O{"augmentation":"chart","data":`}}
	m := newTestModel(t, sender, nil)

	m = settle(t, typeAndSubmit(t, m, "chart please"))
	msgs := m.ctrl.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Here you go", msgs[1].Content)
	assert.True(t, augment.IsAbsent(msgs[1].Augmentation))
}

// =============================================================================
// FAILURES
// =============================================================================

func TestModel_UnauthorizedShowsLogin(t *testing.T) {
	sender := &scriptedSender{err: &chatapi.ClientError{Type: chatapi.ErrTypeUnauthorized, Status: 401, Redirect: "/login"}}
	m := newTestModel(t, sender, nil)

	m = settle(t, typeAndSubmit(t, m, "hi"))

	assert.True(t, strings.HasPrefix(m.loginURL, "/login?callbackUrl="))
	assert.Contains(t, m.View(), "Login required")
	assert.Empty(t, m.ctrl.Snapshot())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.loginURL)
}

func TestModel_SendFailureRollsBack(t *testing.T) {
	sender := &scriptedSender{err: &chatapi.ClientError{Type: chatapi.ErrTypeTransport, Message: "connection refused"}}
	m := newTestModel(t, sender, nil)

	m = settle(t, typeAndSubmit(t, m, "hi"))

	assert.Empty(t, m.ctrl.Snapshot())
	assert.Equal(t, session.StateIdle, m.state)
	require.NotEmpty(t, toastMessages(m))
	assert.Contains(t, toastMessages(m)[0], "connection refused")
}

func TestModel_StaleIdleKeepsNextSendBusy(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"unused"}}, nil)

	m = update(t, m, EventMsg{Event: session.Event{Type: session.EventStateChanged, State: session.StateSending, Seq: 1}})
	m = update(t, m, EventMsg{Event: session.Event{Type: session.EventStateChanged, State: session.StateSending, Seq: 2}})
	m.buffer.Set("partial")
	m = update(t, m, EventMsg{Event: session.Event{Type: session.EventStateChanged, State: session.StateIdle, Seq: 1}})

	assert.Equal(t, session.StateSending, m.state, "idle from the earlier send is ignored")
	content, ok := m.buffer.ForceFlush()
	assert.True(t, ok, "the live buffer of the current send survives")
	assert.Equal(t, "partial", content)

	m = update(t, m, EventMsg{Event: session.Event{Type: session.EventStateChanged, State: session.StateIdle, Seq: 2}})
	assert.Equal(t, session.StateIdle, m.state)
}

func TestModel_ClearWithFullQueueDoesNotBlock(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"Hello"}}, nil)
	m = settle(t, typeAndSubmit(t, m, "hi"))
	require.Len(t, m.ctrl.Snapshot(), 2)

	for len(m.queue) < cap(m.queue) {
		m.queue <- RefreshMsg{}
	}

	done := make(chan Model, 1)
	go func() {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
		done <- next.(Model)
	}()

	select {
	case m = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("clear blocked on the event queue")
	}
	assert.Empty(t, m.ctrl.Snapshot())
	assert.Empty(t, m.live)
	assert.Equal(t, -1, m.buttonFocus)

	m = settle(t, m)
	assert.Empty(t, m.ctrl.Snapshot())
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestModel_ClearCommand(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"Hello"}}, nil)
	m = settle(t, typeAndSubmit(t, m, "hi"))
	require.Len(t, m.ctrl.Snapshot(), 2)

	m = settle(t, typeAndSubmit(t, m, "/clear"))
	assert.Empty(t, m.ctrl.Snapshot())
	assert.Empty(t, m.input.Value())
}

func TestModel_ClearKey(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"Hello"}}, nil)
	m = settle(t, typeAndSubmit(t, m, "hi"))

	m = settle(t, update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL}))
	assert.Empty(t, m.ctrl.Snapshot())
}

func TestModel_PersonaCommand(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"unused"}}, nil)

	m = typeAndSubmit(t, m, "/persona coach")
	assert.Equal(t, "coach", m.ctrl.Persona().ID)
	assert.Equal(t, "coach", m.header.Persona.ID)

	m = typeAndSubmit(t, m, "/persona nobody")
	assert.Equal(t, "coach", m.ctrl.Persona().ID)
	assert.Contains(t, toastMessages(m), "Unknown persona nobody")
}

func TestModel_PersonasCommandMarksCurrent(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"unused"}}, nil)

	m = typeAndSubmit(t, m, "/personas")
	msgs := toastMessages(m)
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "assistant*")
}

func TestModel_UnknownCommand(t *testing.T) {
	sender := &scriptedSender{replies: []string{"unused"}}
	m := newTestModel(t, sender, nil)

	m = typeAndSubmit(t, m, "/bogus")
	assert.Contains(t, toastMessages(m), "Unknown command /bogus, try /help")
	assert.Empty(t, sender.sent())
}

func TestModel_NewCommandKeepsPersona(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"Hello"}}, nil)
	m = typeAndSubmit(t, m, "/persona analyst")
	m = settle(t, typeAndSubmit(t, m, "hi"))
	oldID := m.ctrl.Conversation().ID

	m = settle(t, typeAndSubmit(t, m, "/new"))
	conv := m.ctrl.Conversation()
	assert.Empty(t, conv.Messages)
	assert.NotEqual(t, oldID, conv.ID)
	assert.Equal(t, "analyst", conv.Persona.ID)
}

func TestModel_CopyLastReply(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"Copy me"}}, nil)
	var copied string
	m.copyText = func(s string) error {
		copied = s
		return nil
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Contains(t, toastMessages(m), "Nothing to copy yet")

	m = settle(t, typeAndSubmit(t, m, "hi"))
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	m = next.(Model)
	require.NotNil(t, cmd)

	m = update(t, m, cmd())
	assert.Equal(t, "Copy me", copied)
	assert.Contains(t, toastMessages(m), "Copied last reply")
}

// =============================================================================
// SIDEBAR
// =============================================================================

func TestModel_SidebarOpensStoredChat(t *testing.T) {
	store, err := storage.Open(storage.BackendJSON, t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	m := newTestModel(t, &scriptedSender{replies: []string{"Stored reply"}}, store)
	require.True(t, m.showSidebar)

	m = settle(t, typeAndSubmit(t, m, "remember this"))
	savedID := m.ctrl.Conversation().ID

	m = update(t, m, loadSessions(store)())
	meta, ok := m.sidebar.Selected()
	require.True(t, ok)
	assert.Equal(t, savedID, meta.ID)
	assert.Equal(t, 2, meta.MessageCount)

	m = settle(t, typeAndSubmit(t, m, "/new"))
	require.Empty(t, m.ctrl.Snapshot())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	m = settle(t, update(t, m, cmd()))

	assert.Equal(t, savedID, m.ctrl.Conversation().ID)
	require.Len(t, m.ctrl.Snapshot(), 2)
	assert.Equal(t, "Stored reply", m.ctrl.Snapshot()[1].Content)
}

func TestModel_ChatsCommandWithoutStore(t *testing.T) {
	m := newTestModel(t, &scriptedSender{replies: []string{"unused"}}, nil)

	m = typeAndSubmit(t, m, "/chats")
	assert.False(t, m.showSidebar)
	assert.Contains(t, toastMessages(m), "No chat storage configured")
}

func TestModel_OpenCommandLoadsStoredChat(t *testing.T) {
	store, err := storage.Open(storage.BackendJSON, t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	m := newTestModel(t, &scriptedSender{replies: []string{"Kept"}}, store)
	m = settle(t, typeAndSubmit(t, m, "first chat"))
	savedID := m.ctrl.Conversation().ID
	m = settle(t, typeAndSubmit(t, m, "/new"))

	m.input.SetValue("/open " + savedID)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	m = settle(t, update(t, m, cmd()))

	assert.Equal(t, savedID, m.ctrl.Conversation().ID)

	m = typeAndSubmit(t, m, "/open")
	assert.Contains(t, toastMessages(m)[len(toastMessages(m))-1], "required argument missing")
}
