// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jeranaias/augchat/internal/model"
)

// Store persists conversations.
type Store interface {
	Save(conv *model.Conversation) error
	Load(id string) (*model.Conversation, error)
	List() ([]ConversationMeta, error)
	Search(query string) ([]ConversationMeta, error)
	Delete(id string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendJSON:
		return NewJSONStore(dir)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, "conversations.db"))
	default:
		return nil, errors.Errorf("unknown storage backend %q", backend)
	}
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Persona      string    `json:"persona"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// metaOf builds listing metadata from a full conversation.
func metaOf(conv *model.Conversation) ConversationMeta {
	preview := ""
	for _, msg := range conv.Messages {
		if msg.Role == model.RoleUser && msg.Content != "" {
			preview = truncateString(singleLine(msg.Content), 80)
			break
		}
	}
	return ConversationMeta{
		ID:           conv.ID,
		Title:        conv.GetTitle(),
		Persona:      conv.Persona.DisplayName(),
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
		MessageCount: len(conv.Messages),
		Preview:      preview,
	}
}

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// checkID rejects IDs that could escape the store directory.
func checkID(id string) error {
	if !validID.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ErrInvalidID is returned for IDs containing characters outside [A-Za-z0-9_-].
var ErrInvalidID = &ConversationError{Message: "invalid conversation id"}

// ConversationError represents a conversation-related error.
// It implements the error interface and can be compared using errors.Is.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
