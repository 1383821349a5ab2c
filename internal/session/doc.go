// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one chat conversation through its send cycle.
//
// The Controller moves through
//
//	Idle -> Sending -> StreamingContent -> StreamingAugmentation -> Committing -> Idle
//
// with Sending -> Idle when the request fails. The user message is appended
// before the request is issued and rolled back if the request fails.
// StreamingAugmentation is skipped when a reply carries no delimiter.
//
// # Key Types
//
//   - Controller: owns the history and the transient streaming text
//   - Host: persistence, notification, redirect and redraw callbacks
//   - Event: ordered notifications for a renderer
//
// # Usage
//
//	ctrl := session.NewController(conv, session.Options{
//	    Sender:  chatapi.NewClient(cfg),
//	    Host:    host,
//	    OnEvent: func(e session.Event) { program.Send(e) },
//	})
//	if err := ctrl.Submit(ctx, "hello"); errors.Is(err, session.ErrBusy) {
//	    // a reply is still streaming
//	}
//
// Every history mutation calls Host.SaveMessages. Augmentation payloads that
// fail to parse or validate are logged and the reply is kept as plain text.
package session
