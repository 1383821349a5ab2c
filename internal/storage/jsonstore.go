// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/util"
)

// DefaultKeep is how many chats a JSONStore keeps before pruning the
// least recently updated.
const DefaultKeep = 100

// JSONStore keeps each conversation in <dir>/<id>.json.
type JSONStore struct {
	dir string

	// Keep bounds the number of stored chats; 0 keeps everything
	Keep int

	mu sync.Mutex
}

// NewJSONStore creates dir if needed and returns a store rooted there.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}
	return &JSONStore{dir: dir, Keep: DefaultKeep}, nil
}

// Dir returns the directory the store writes to.
func (s *JSONStore) Dir() string { return s.dir }

// Save writes conv atomically, assigning an ID and timestamps when missing.
func (s *JSONStore) Save(conv *model.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if err := checkID(conv.ID); err != nil {
		return err
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode conversation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.AtomicWriteFile(s.path(conv.ID), data, 0600); err != nil {
		return errors.Wrap(err, "write conversation")
	}
	s.prune()
	return nil
}

// prune drops the oldest chats beyond Keep. Caller holds mu.
func (s *JSONStore) prune() {
	if s.Keep <= 0 {
		return
	}
	metas, err := s.scan()
	if err != nil || len(metas) <= s.Keep {
		return
	}
	for _, m := range metas[s.Keep:] {
		_ = os.Remove(s.path(m.ID))
	}
}

// Load reads one conversation.
func (s *JSONStore) Load(id string) (*model.Conversation, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.read(id)
}

func (s *JSONStore) read(id string) (*model.Conversation, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "read conversation")
	}
	conv := &model.Conversation{}
	if err := json.Unmarshal(data, conv); err != nil {
		return nil, errors.Wrapf(err, "decode conversation %s", id)
	}
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	return conv, nil
}

// List returns every readable chat, most recently updated first.
func (s *JSONStore) List() ([]ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scan()
}

func (s *JSONStore) scan() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []ConversationMeta{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}

	metas := make([]ConversationMeta, 0, len(entries))
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok || checkID(id) != nil {
			continue
		}
		// Unreadable files stay on disk but out of the listing
		if conv, err := s.read(id); err == nil {
			metas = append(metas, metaOf(conv))
		}
	}
	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Search returns chats whose title or any message contains query, ignoring
// case. An empty query lists everything.
func (s *JSONStore) Search(query string) ([]ConversationMeta, error) {
	metas, err := s.List()
	if err != nil || query == "" {
		return metas, err
	}
	query = strings.ToLower(query)

	var hits []ConversationMeta
	for _, m := range metas {
		if strings.Contains(strings.ToLower(m.Title), query) {
			hits = append(hits, m)
			continue
		}
		conv, err := s.read(m.ID)
		if err != nil {
			continue
		}
		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				hits = append(hits, m)
				break
			}
		}
	}
	return hits, nil
}

// Delete removes one chat.
func (s *JSONStore) Delete(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrConversationNotFound
	}
	return errors.Wrap(err, "delete conversation")
}

// Close implements Store.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
