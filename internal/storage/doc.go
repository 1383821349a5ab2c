// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for augchat.
//
// Two backends implement Store: JSONStore writes one JSON file per
// conversation, and SQLiteStore keeps everything in one database. Both
// round-trip message augmentations through their wire envelope.
//
// # Key Types
//
//   - Store: storage interface used by the chat front ends
//   - JSONStore: JSON files under a directory, pruned to the newest 100
//   - SQLiteStore: pure Go SQLite database
//   - ConversationMeta: Lightweight metadata for listing
//
// # Usage
//
//	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir)
//	err = store.Save(conv)
//	metas, err := store.List()
//	conv, err := store.Load(metas[0].ID)
//
// # Storage Location
//
// The directory comes from [storage] dir in the config, defaulting to
// conversations/ under the augchat config directory.
package storage
