// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama relays chat tokens from a local Ollama server. `augchat
// serve --backend ollama` forwards each chunk to the chat stream as it
// arrives.
package ollama
