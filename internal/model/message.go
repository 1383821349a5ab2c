// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jeranaias/augchat/internal/augment"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one entry of a conversation. Messages are values: once appended
// to a Conversation they are not modified.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time

	// Augmentation is nil for plain messages. It is never augment.None once
	// committed.
	Augmentation augment.Augmentation
}

// NewMessage creates a message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message. An absent augmentation
// (nil or augment.None) is stored as nil.
func NewAssistantMessage(content string, aug augment.Augmentation) Message {
	msg := NewMessage(RoleAssistant, content)
	if !augment.IsAbsent(aug) {
		msg.Augmentation = aug
	}
	return msg
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// HasAugmentation reports whether the message carries something to render.
func (m Message) HasAugmentation() bool {
	return !augment.IsAbsent(m.Augmentation)
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// JSON
// =============================================================================

type messageJSON struct {
	ID           string          `json:"id,omitempty"`
	Role         Role            `json:"role"`
	Content      string          `json:"content"`
	Augmentation json.RawMessage `json:"augmentation,omitempty"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
}

// MarshalJSON encodes the augmentation as its tagged envelope.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		ID:      m.ID,
		Role:    m.Role,
		Content: m.Content,
	}
	if !m.Timestamp.IsZero() {
		ts := m.Timestamp
		out.Timestamp = &ts
	}
	if m.HasAugmentation() {
		b, err := augment.Marshal(m.Augmentation)
		if err != nil {
			return nil, errors.Wrap(err, "marshal message augmentation")
		}
		out.Augmentation = b
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a message. An augmentation that fails validation is
// dropped; the message keeps its content.
func (m *Message) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = Message{
		ID:      in.ID,
		Role:    in.Role,
		Content: in.Content,
	}
	if in.Timestamp != nil {
		m.Timestamp = *in.Timestamp
	}
	if len(in.Augmentation) > 0 && string(in.Augmentation) != "null" {
		if aug, err := augment.Parse(string(in.Augmentation)); err == nil && !augment.IsAbsent(aug) {
			m.Augmentation = aug
		}
	}
	return nil
}
