// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/model"
)

// sqliteSchema creates the tables used by SQLiteStore.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	persona    TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	id              TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	augmentation    TEXT,
	created_at      INTEGER NOT NULL,
	PRIMARY KEY (conversation_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);
`

// SQLiteStore keeps conversations in a single SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "create database directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "set %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize schema")
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save replaces the stored copy of conv in one transaction.
func (s *SQLiteStore) Save(conv *model.Conversation) error {
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
	persona, err := json.Marshal(conv.Persona)
	if err != nil {
		return errors.Wrap(err, "encode persona")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO conversations (id, title, persona, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, persona = excluded.persona,
			updated_at = excluded.updated_at`,
		conv.ID, conv.Title, string(persona), conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano())
	if err != nil {
		return errors.Wrap(err, "upsert conversation")
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return errors.Wrap(err, "clear messages")
	}

	stmt, err := tx.Prepare(`INSERT INTO messages (conversation_id, seq, id, role, content, augmentation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for i, msg := range conv.Messages {
		var aug sql.NullString
		if msg.HasAugmentation() {
			b, err := augment.Marshal(msg.Augmentation)
			if err != nil {
				return errors.Wrapf(err, "encode augmentation of message %d", i)
			}
			aug = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.Exec(conv.ID, i, msg.ID, string(msg.Role), msg.Content, aug, msg.Timestamp.UnixNano()); err != nil {
			return errors.Wrapf(err, "insert message %d", i)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// Load retrieves a conversation by ID.
func (s *SQLiteStore) Load(id string) (*model.Conversation, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var (
		conv             model.Conversation
		persona          string
		created, updated int64
	)
	err := s.db.QueryRow(`SELECT id, title, persona, created_at, updated_at FROM conversations WHERE id = ?`, id).
		Scan(&conv.ID, &conv.Title, &persona, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load conversation")
	}
	conv.CreatedAt = time.Unix(0, created)
	conv.UpdatedAt = time.Unix(0, updated)
	if err := json.Unmarshal([]byte(persona), &conv.Persona); err != nil {
		return nil, errors.Wrap(err, "decode persona")
	}

	rows, err := s.db.Query(`SELECT id, role, content, augmentation, created_at FROM messages
		WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, errors.Wrap(err, "load messages")
	}
	defer rows.Close()

	conv.Messages = make([]model.Message, 0)
	for rows.Next() {
		var (
			msg  model.Message
			role string
			aug  sql.NullString
			ts   int64
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &aug, &ts); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.Unix(0, ts)
		if aug.Valid {
			if a, err := augment.Parse(aug.String); err == nil && !augment.IsAbsent(a) {
				msg.Augmentation = a
			}
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return &conv, errors.Wrap(rows.Err(), "iterate messages")
}

// List returns all saved conversations (most recent first).
func (s *SQLiteStore) List() ([]ConversationMeta, error) {
	return s.query(`SELECT c.id, c.title, c.persona, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
			COALESCE((SELECT content FROM messages m WHERE m.conversation_id = c.id AND m.role = 'user'
				ORDER BY seq LIMIT 1), '')
		FROM conversations c ORDER BY c.updated_at DESC`)
}

// Search finds conversations whose title or any message contains query.
func (s *SQLiteStore) Search(query string) ([]ConversationMeta, error) {
	if query == "" {
		return s.List()
	}
	like := "%" + strings.ToLower(query) + "%"
	return s.query(`SELECT c.id, c.title, c.persona, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
			COALESCE((SELECT content FROM messages m WHERE m.conversation_id = c.id AND m.role = 'user'
				ORDER BY seq LIMIT 1), '')
		FROM conversations c
		WHERE lower(c.title) LIKE ?1
			OR EXISTS (SELECT 1 FROM messages m WHERE m.conversation_id = c.id AND lower(m.content) LIKE ?1)
		ORDER BY c.updated_at DESC`, like)
}

func (s *SQLiteStore) query(q string, args ...any) ([]ConversationMeta, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	defer rows.Close()

	metas := make([]ConversationMeta, 0)
	for rows.Next() {
		var (
			m                ConversationMeta
			persona, preview string
			created, updated int64
		)
		if err := rows.Scan(&m.ID, &m.Title, &persona, &created, &updated, &m.MessageCount, &preview); err != nil {
			return nil, errors.Wrap(err, "scan conversation")
		}
		var p model.Persona
		_ = json.Unmarshal([]byte(persona), &p)
		m.Persona = p.DisplayName()
		if m.Title == "" {
			m.Title = "New conversation"
		}
		m.CreatedAt = time.Unix(0, created)
		m.UpdatedAt = time.Unix(0, updated)
		m.Preview = truncateString(singleLine(preview), 80)
		metas = append(metas, m)
	}
	return metas, errors.Wrap(rows.Err(), "iterate conversations")
}

// Delete removes a conversation and its messages.
func (s *SQLiteStore) Delete(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	res, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete conversation")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
