// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/persona"
	"github.com/jeranaias/augchat/internal/session"
	"github.com/jeranaias/augchat/internal/storage"
	"github.com/jeranaias/augchat/internal/ui/components"
	"github.com/jeranaias/augchat/internal/ui/styles"
)

// eventQueueSize bounds the controller messages waiting for the UI loop.
const eventQueueSize = 256

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a chat Model.
type Options struct {
	// Conversation to open. Nil starts a new chat with the resolved persona.
	Conversation *model.Conversation

	Sender   session.Sender
	Store    storage.Store
	Personas *persona.Registry

	// Persona is the persona ID for a new chat.
	Persona string

	Theme       *styles.Theme
	FPS         int
	CommitDelay time.Duration
	Location    string
	ShowSidebar bool
	Logger      zerolog.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen. The controller owns the
// conversation; the model renders snapshots of it plus the live content.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	ctrl     *session.Controller
	store    storage.Store
	personas *persona.Registry
	queue    chan tea.Msg
	buffer   *ContentBuffer
	log      zerolog.Logger

	theme    *styles.Theme
	keys     KeyMap
	header   *components.Header
	status   *components.StatusBar
	sidebar  *components.Sidebar
	toasts   *components.ToastManager
	markdown *components.MarkdownRenderer
	charts   components.ChartRenderer

	viewport viewport.Model
	input    textinput.Model

	width  int
	height int
	ready  bool

	// Send cycle
	state      session.State
	sendSeq    uint64 // latest send seen; older sends' state events are stale
	live       string // content shown in the transient bubble
	augmenting bool

	// Response button focus: index into the messages carrying a button,
	// newest first. -1 means the input has focus.
	buttonFocus int

	// Effect playing for the newest animation message
	effectID    string
	effectStart time.Time
	effectFrame int

	frame       int
	loginURL    string
	showSidebar bool
	toastCount  int

	// rendered caches committed message bodies by ID for the current width
	rendered map[string]string

	copyText func(string) error
}

// New creates a chat model and its controller.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ModeAuto)
	}
	if opts.Personas == nil {
		opts.Personas = persona.NewRegistry(persona.Builtin())
	}
	conv := opts.Conversation
	if conv == nil {
		conv = model.NewConversation(opts.Personas.Resolve(opts.Persona))
	}

	ctx, cancel := context.WithCancel(context.Background())
	queue := make(chan tea.Msg, eventQueueSize)
	buffer := NewContentBuffer(opts.FPS)
	toasts := components.NewToastManager()
	logger := opts.Logger.With().Str("component", "tui").Logger()

	h := &host{ctx: ctx, store: opts.Store, toasts: toasts, queue: queue, log: logger}
	ctrl := session.NewController(conv, session.Options{
		Sender:      opts.Sender,
		Host:        h,
		Logger:      opts.Logger,
		CommitDelay: opts.CommitDelay,
		Location:    opts.Location,
		OnEvent: func(e session.Event) {
			switch e.Type {
			case session.EventContent:
				buffer.Set(e.Content)
			case session.EventCleared:
				// Clear and Load run inside Update, which applies the reset itself.
				h.post(EventMsg{Event: e})
			default:
				h.send(EventMsg{Event: e})
			}
		},
	})

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	header := components.NewHeader(opts.Theme)
	header.SetPersona(conv.Persona)
	header.SetTitle(conv.GetTitle())

	sidebar := components.NewSidebar(opts.Theme)
	sidebar.SetActive(conv.ID)

	return Model{
		ctx:         ctx,
		cancel:      cancel,
		ctrl:        ctrl,
		store:       opts.Store,
		personas:    opts.Personas,
		queue:       queue,
		buffer:      buffer,
		log:         logger,
		theme:       opts.Theme,
		keys:        DefaultKeyMap(),
		header:      header,
		status:      components.NewStatusBar(opts.Theme),
		sidebar:     sidebar,
		toasts:      toasts,
		markdown:    components.NewMarkdownRenderer(opts.Theme.GlamourStyle()),
		charts:      components.NewTextChartRenderer(),
		viewport:    vp,
		input:       ti,
		buttonFocus: -1,
		showSidebar: opts.ShowSidebar && opts.Store != nil,
		rendered:    make(map[string]string),
		copyText:    clipboard.WriteAll,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		waitForEvent(m.queue),
		frameTick(m.buffer.Interval()),
		components.ToastTickCmd(),
	}
	if m.showSidebar {
		cmds = append(cmds, loadSessions(m.store))
	}
	return tea.Batch(cmds...)
}

// Controller returns the session controller driving this model.
func (m Model) Controller() *session.Controller {
	return m.ctrl
}

// Close stops event delivery and waits for an in-flight send to finish.
func (m Model) Close() {
	m.cancel()
	m.ctrl.Wait()
}
