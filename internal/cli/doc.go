// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the augchat command line.
//
// # Commands
//
//   - chat (default): full screen UI on a terminal, line mode otherwise or
//     with --plain
//   - serve: the reference streaming chat endpoint
//   - sessions list|show|delete|export: saved chats
//   - schema: the augmentation JSON Schema
//   - personas: the persona catalog
//   - version
//
// # Usage
//
//	os.Exit(cli.Execute(ctx, cli.NewApp(), os.Args[1:]))
//
// Commands return errors instead of printing them. Execute prints each
// error once, as JSON with --json, and maps it to an exit code (see
// GetExitCode).
package cli
