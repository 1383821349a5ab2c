// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: ordered message history plus the persona it belongs to
//   - Message: a single message with role, content and optional augmentation
//   - Persona: prompt and display identity supplied with each request
//   - Role: message role enumeration (user, assistant, system)
//
// # Usage
//
//	conv := model.NewConversation(persona)
//	conv.Append(model.NewUserMessage("Hello!"))
//	conv.Append(model.NewAssistantMessage("Hi!", augment.Animation{Effect: augment.EffectYes}))
//
// Messages serialize their augmentation as the tagged wire envelope, so a
// stored conversation can be sent back to the chat endpoint unchanged.
package model
