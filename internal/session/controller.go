// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/chatapi"
	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/stream"
)

// DefaultCommitDelay separates the last content update from the commit so a
// renderer that coalesces same-tick updates still draws the final frame.
const DefaultCommitDelay = time.Millisecond

// Sentinel errors for easy checking.
var (
	ErrBusy       = errors.New("a message is already being sent")
	ErrEmptyInput = errors.New("please type a message to continue")
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Controller.
type Options struct {
	Sender Sender
	Host   Host

	// OnEvent receives every Event in order. It must not block for long:
	// it runs on the goroutine driving the send.
	OnEvent func(Event)

	Logger zerolog.Logger

	// CommitDelay defaults to DefaultCommitDelay and is never zero.
	CommitDelay time.Duration

	// Location is the current place in the host, used as the login
	// callback target after an unauthorized response.
	Location string
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns one conversation and drives the send / stream / commit
// cycle for it. Only one send is in flight at a time.
type Controller struct {
	mu        sync.Mutex
	conv      *model.Conversation
	state     State
	streaming string
	pendingID string // ID of the optimistic user message
	seq       uint64 // number of the latest send

	sender      Sender
	host        Host
	onEvent     func(Event)
	validator   *augment.Validator
	commitDelay time.Duration
	location    string
	log         zerolog.Logger

	wg sync.WaitGroup
}

// NewController creates a controller for conv. A nil conv starts an empty
// conversation without an ID, which is never persisted.
func NewController(conv *model.Conversation, opts Options) *Controller {
	if conv == nil {
		conv = &model.Conversation{Messages: make([]model.Message, 0)}
	}
	if opts.Host == nil {
		opts.Host = HostFuncs{}
	}
	if opts.CommitDelay <= 0 {
		opts.CommitDelay = DefaultCommitDelay
	}
	logger := opts.Logger.With().Str("component", "session").Logger()
	return &Controller{
		conv:        conv,
		sender:      opts.Sender,
		host:        opts.Host,
		onEvent:     opts.OnEvent,
		validator:   augment.NewValidator(opts.Logger),
		commitDelay: opts.CommitDelay,
		location:    opts.Location,
		log:         logger,
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a send is in flight.
func (c *Controller) Busy() bool {
	return c.State().Busy()
}

// Streaming returns the transient reply text shown while a send is in flight.
func (c *Controller) Streaming() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Snapshot returns a copy of the history taken after the last completed
// transition.
func (c *Controller) Snapshot() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Snapshot()
}

// Conversation returns a copy of the conversation.
func (c *Controller) Conversation() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Clone()
}

// Persona returns the persona of the current conversation.
func (c *Controller) Persona() model.Persona {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Persona
}

// SetPersona changes the persona used for later requests.
func (c *Controller) SetPersona(p model.Persona) {
	c.mu.Lock()
	c.conv.Persona = p
	c.mu.Unlock()
	c.persist()
}

// Wait blocks until no send is in flight.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Submit appends input as a user message and sends it in the background.
// It returns ErrEmptyInput for blank input and ErrBusy while a send is in
// flight.
func (c *Controller) Submit(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		c.host.Notify(ErrEmptyInput)
		return ErrEmptyInput
	}
	if c.sender == nil {
		return errors.New("session: no sender configured")
	}

	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	req := chatapi.Request{
		Prompt:   c.conv.Persona.Prompt,
		Messages: c.conv.Recent(chatapi.MaxHistory),
		Input:    input,
	}
	msg := model.NewUserMessage(input)
	c.conv.Append(msg)
	c.pendingID = msg.ID
	c.streaming = ""
	c.state = StateSending
	c.seq++
	seq := c.seq
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Debug().Int("history", len(req.Messages)).Uint64("seq", seq).Msg("submit")
	c.persist()
	c.emit(Event{Type: EventStateChanged, State: StateSending, Seq: seq})

	go c.run(ctx, req, seq)
	return nil
}

// ClickButton submits the response text of a response-button augmentation
// as if the user had typed it.
func (c *Controller) ClickButton(ctx context.Context, b augment.ResponseButton) error {
	return c.Submit(ctx, b.ResponseText)
}

// Clear resets the history to empty.
func (c *Controller) Clear() error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.conv.Clear()
	c.mu.Unlock()

	c.persist()
	c.host.ForceUpdate()
	c.emit(Event{Type: EventCleared})
	return nil
}

// Load replaces the conversation, for example when a stored chat is
// selected.
func (c *Controller) Load(conv *model.Conversation) error {
	if conv == nil {
		return errors.New("session: nil conversation")
	}
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.conv = conv.Clone()
	c.mu.Unlock()

	c.host.ForceUpdate()
	c.emit(Event{Type: EventCleared})
	return nil
}

// =============================================================================
// SEND CYCLE
// =============================================================================

func (c *Controller) run(ctx context.Context, req chatapi.Request, seq uint64) {
	defer c.wg.Done()

	resp, err := c.sender.Stream(ctx, req)
	if err != nil {
		c.fail(err, seq)
		return
	}
	defer resp.Close()

	c.transition(StateStreamingContent, seq)
	res := stream.Decode(ctx, resp.Chunks(), func(u stream.Update) {
		c.mu.Lock()
		c.streaming = u.Content
		c.mu.Unlock()
		c.emit(Event{Type: EventContent, Content: u.Content, Seq: seq})
		if u.Transitioned {
			c.transition(StateStreamingAugmentation, seq)
			c.emit(Event{Type: EventAugmentationStarted, Content: u.Content, Seq: seq})
		}
	})
	if res.Interrupted {
		c.log.Debug().Err(res.Err).Int("bytes", res.Bytes).Msg("stream ended early")
	}

	c.transition(StateCommitting, seq)

	// Commit strictly after the last content update has been delivered.
	timer := time.NewTimer(c.commitDelay)
	<-timer.C

	c.commit(res, seq)
}

func (c *Controller) commit(res stream.Result, seq uint64) {
	var aug augment.Augmentation
	if res.DelimiterFound {
		if a, ok := c.validator.Validate(res.Augmentation); ok {
			aug = a
		}
	}
	msg := model.NewAssistantMessage(res.Content, aug)

	c.mu.Lock()
	c.conv.Append(msg)
	c.streaming = ""
	c.pendingID = ""
	c.state = StateIdle
	c.mu.Unlock()

	kind := "none"
	if msg.HasAugmentation() {
		kind = msg.Augmentation.Kind().String()
	}
	c.log.Debug().
		Int("content_len", len(res.Content)).
		Str("augmentation", kind).
		Bool("interrupted", res.Interrupted).
		Msg("reply committed")

	c.persist()
	c.emit(Event{Type: EventCommitted, Message: msg, Seq: seq})
	c.emit(Event{Type: EventStateChanged, State: StateIdle, Seq: seq})
}

// fail rolls back the optimistic user message and reports err. Every
// failure before streaming rolls back the same way; an unauthorized
// response redirects instead of notifying.
func (c *Controller) fail(err error, seq uint64) {
	c.mu.Lock()
	if last, ok := c.conv.Last(); ok && last.ID == c.pendingID {
		c.conv.Pop()
	}
	c.streaming = ""
	c.pendingID = ""
	c.state = StateIdle
	c.mu.Unlock()

	c.persist()

	if ce, ok := chatapi.AsClientError(err); ok && ce.Type == chatapi.ErrTypeUnauthorized {
		target := chatapi.LoginURL(ce.Redirect, c.location)
		c.log.Info().Str("redirect", target).Msg("unauthorized, redirecting to login")
		c.host.Redirect(target)
	} else {
		c.log.Warn().Err(err).Msg("send failed")
		c.host.Notify(err)
	}

	c.emit(Event{Type: EventFailed, Err: err, Seq: seq})
	c.emit(Event{Type: EventStateChanged, State: StateIdle, Seq: seq})
}

func (c *Controller) transition(s State, seq uint64) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.emit(Event{Type: EventStateChanged, State: s, Seq: seq})
}

func (c *Controller) persist() {
	c.mu.Lock()
	if c.conv.ID == "" {
		c.mu.Unlock()
		return
	}
	conv := c.conv.Clone()
	c.mu.Unlock()
	c.host.SaveMessages(conv)
}

func (c *Controller) emit(e Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}
