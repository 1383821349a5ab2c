// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered, append-only list of messages plus the persona
// it was held with. It is not safe for concurrent use; the session
// controller serializes access.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Persona Persona `json:"persona"`

	// Messages
	Messages []Message `json:"messages"`
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation(p Persona) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Persona:   p,
		Messages:  make([]Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
}

// Pop removes and returns the last message. It is used to roll back an
// optimistic append.
func (c *Conversation) Pop() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	last := c.Messages[len(c.Messages)-1]
	c.Messages = c.Messages[:len(c.Messages)-1]
	c.UpdatedAt = time.Now()
	return last, true
}

// Clear removes all messages from the conversation.
func (c *Conversation) Clear() {
	c.Messages = make([]Message, 0)
	c.UpdatedAt = time.Now()
}

// Snapshot returns a copy of the messages that later mutations do not affect.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}

// Recent returns a copy of the last n messages, or all of them when there
// are fewer. The conversation itself is never shortened.
func (c *Conversation) Recent(n int) []Message {
	start := len(c.Messages) - n
	if n <= 0 || start < 0 {
		start = 0
	}
	out := make([]Message, len(c.Messages)-start)
	copy(out, c.Messages[start:])
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// LastAssistant returns the most recent assistant message.
func (c *Conversation) LastAssistant() (Message, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i], true
		}
	}
	return Message{}, false
}

// =============================================================================
// METADATA
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(50)
			return
		}
	}
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New conversation"
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = c.Snapshot()
	return &cp
}
