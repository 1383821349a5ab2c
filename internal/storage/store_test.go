// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/model"
)

func sampleConversation() *model.Conversation {
	conv := model.NewConversation(model.Persona{ID: "coach", Name: "Coach", Prompt: "Encourage."})
	conv.Append(model.NewUserMessage("Hello"))
	conv.Append(model.NewAssistantMessage("Great job!", augment.Animation{Effect: augment.EffectSuccess}))
	return conv
}

// stores returns one of each backend rooted in a fresh temp dir.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	jsonStore, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create JSON store: %v", err)
	}
	sqlStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "c.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { sqlStore.Close() })
	return map[string]Store{"json": jsonStore, "sqlite": sqlStore}
}

// =============================================================================
// CONVERSATION STORE TESTS
// =============================================================================

func TestNewJSONStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "chats")

	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if store.Dir() != dir {
		t.Errorf("Dir = %q, want %q", store.Dir(), dir)
	}
	if store.Keep != DefaultKeep {
		t.Errorf("Keep = %d, want %d", store.Keep, DefaultKeep)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			conv := sampleConversation()
			if err := store.Save(conv); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := store.Load(conv.ID)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.ID != conv.ID {
				t.Errorf("Loaded ID = %q, want %q", loaded.ID, conv.ID)
			}
			if loaded.Persona.Name != "Coach" || loaded.Persona.Prompt != "Encourage." {
				t.Errorf("Loaded Persona = %+v", loaded.Persona)
			}
			if len(loaded.Messages) != 2 {
				t.Fatalf("Loaded Messages count = %d, want 2", len(loaded.Messages))
			}
			if got := loaded.Messages[1].Augmentation; got != (augment.Animation{Effect: augment.EffectSuccess}) {
				t.Errorf("Augmentation = %#v, want Success animation", got)
			}
			if loaded.Messages[0].Augmentation != nil {
				t.Errorf("user message gained an augmentation: %#v", loaded.Messages[0].Augmentation)
			}
		})
	}
}

func TestStore_SaveReplacesMessages(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			conv := sampleConversation()
			if err := store.Save(conv); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			conv.Clear()
			if err := store.Save(conv); err != nil {
				t.Fatalf("Save after clear failed: %v", err)
			}
			loaded, err := store.Load(conv.ID)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(loaded.Messages) != 0 {
				t.Errorf("Messages count = %d, want 0", len(loaded.Messages))
			}
		})
	}
}

func TestStore_LoadNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load("missing")
			if !errors.Is(err, ErrConversationNotFound) {
				t.Errorf("Load error = %v, want ErrConversationNotFound", err)
			}
			if err := store.Delete("missing"); !errors.Is(err, ErrConversationNotFound) {
				t.Errorf("Delete error = %v, want ErrConversationNotFound", err)
			}
		})
	}
}

func TestJSONStore_SkipsCorruptFiles(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Save(sampleConversation()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 1 {
		t.Errorf("List count = %d, want 1", len(metas))
	}
}

func TestStore_RejectsPathLikeIDs(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load("../etc/passwd"); !errors.Is(err, ErrInvalidID) {
				t.Errorf("Load error = %v, want ErrInvalidID", err)
			}
		})
	}
}

func TestStore_ListAndSearch(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			older := sampleConversation()
			older.UpdatedAt = time.Now().Add(-time.Hour)
			newer := model.NewConversation(model.Persona{Name: "Analyst"})
			newer.Append(model.NewUserMessage("Show me the quarterly numbers"))

			for _, c := range []*model.Conversation{older, newer} {
				if err := store.Save(c); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
			}

			metas, err := store.List()
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(metas) != 2 {
				t.Fatalf("List count = %d, want 2", len(metas))
			}
			if metas[0].ID != newer.ID {
				t.Errorf("List[0] = %q, want most recent %q", metas[0].ID, newer.ID)
			}
			if metas[0].Persona != "Analyst" || metas[0].MessageCount != 1 {
				t.Errorf("List[0] = %+v", metas[0])
			}
			if metas[1].Preview != "Hello" {
				t.Errorf("List[1].Preview = %q, want Hello", metas[1].Preview)
			}

			found, err := store.Search("great JOB")
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(found) != 1 || found[0].ID != older.ID {
				t.Errorf("Search = %+v, want only %q", found, older.ID)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			conv := sampleConversation()
			if err := store.Save(conv); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if err := store.Delete(conv.ID); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := store.Load(conv.ID); !errors.Is(err, ErrConversationNotFound) {
				t.Errorf("Load after delete error = %v", err)
			}
		})
	}
}

func TestJSONStore_PrunesOldest(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	store.Keep = 2

	var ids []string
	for i := 0; i < 3; i++ {
		conv := sampleConversation()
		conv.UpdatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if err := store.Save(conv); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		ids = append(ids, conv.ID)
	}

	if _, err := os.Stat(store.path(ids[0])); !os.IsNotExist(err) {
		t.Errorf("oldest conversation should have been pruned")
	}
	metas, _ := store.List()
	if len(metas) != 2 {
		t.Errorf("List count = %d, want 2", len(metas))
	}
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()
	s, err := Open("sqlite", dir)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	s.Close()
	if _, err := os.Stat(filepath.Join(dir, "conversations.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	if _, err := Open("json", dir); err != nil {
		t.Errorf("Open json: %v", err)
	}
	if _, err := Open("redis", dir); err == nil {
		t.Error("Open with unknown backend should fail")
	}
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestExportMarkdown(t *testing.T) {
	md := ExportMarkdown(sampleConversation())

	for _, want := range []string{"# Hello", "Persona: Coach", "**You**", "**Coach**", "> animation: Success"} {
		if !strings.Contains(md, want) {
			t.Errorf("ExportMarkdown missing %q:\n%s", want, md)
		}
	}
}

func TestFormatSessionList(t *testing.T) {
	if got := FormatSessionList(nil); got != "No sessions found." {
		t.Errorf("FormatSessionList(nil) = %q", got)
	}

	out := FormatSessionList([]ConversationMeta{{
		ID: "0123456789abcdef", Title: "Quarterly numbers", Persona: "Analyst",
		MessageCount: 4, UpdatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}})
	for _, want := range []string{"01234567 ", "2025-03-01 09:30", "Analyst", "Quarterly numbers"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatSessionList missing %q:\n%s", want, out)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 0, ""},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
