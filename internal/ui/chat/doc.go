// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat screen of the augchat TUI.

The Model is a Bubble Tea model wrapped around a session.Controller. The
controller owns the conversation and runs each send on its own goroutine;
the model only renders snapshots of it.

# Event Delivery

Controller events reach the Bubble Tea loop two ways:

  - Content events go into a ContentBuffer (streaming.go). Each one carries
    the full text so far, so only the newest is kept and it is drawn at the
    configured frame rate.
  - Every other event, plus the host's Redirect and ForceUpdate calls, is
    queued as a tea.Msg and read back by waitForEvent.

Before a commit is drawn the buffer is force-flushed, so the last content
frame is never skipped.

# Augmentations

Response buttons are focused with tab (newest first) and pressed with
enter, which submits their response text. Animation effects play through
frame ticks and then hold their last frame. Charts go through the text
chart renderer.

# Commands

/help, /clear, /new, /persona <id>, /personas, /copy, /chats, /open <id>
and /quit. Commands are parsed by the shared commands catalog.
ctrl+l clears, ctrl+b toggles the stored chat list and ctrl+y copies the
last reply.
*/
package chat
