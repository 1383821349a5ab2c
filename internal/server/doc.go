// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is a reference implementation of the streaming chat
// endpoint that augchat clients talk to.
//
// # Endpoints
//
//   - POST /api/chat   - streams reply text, optionally followed by the
//     delimiter and one augmentation JSON document
//   - GET  /api/schema - JSON Schema for augmentations
//   - GET  /api/health - health check
//   - GET  /login      - placeholder login page used by 401 redirects
//
// # Backends
//
//   - ScriptedBackend: keyword-driven replies covering every augmentation
//   - OllamaBackend: relays a local Ollama model
//
// # Usage
//
//	srv := server.New(server.Config{Addr: "127.0.0.1:8787"}, &server.ScriptedBackend{})
//	if err := srv.ListenAndServe(ctx); err != nil {
//		return err
//	}
package server
