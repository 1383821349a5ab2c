// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the augchat packages.
//
// # Key Functions
//
//   - TruncateRunes, TruncateWidth: UTF-8 and terminal-width safe truncation
//   - PadRight, StringWidth: display-width aware layout helpers
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	display := util.TruncateWidth(title, 30)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
