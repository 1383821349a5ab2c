// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable UI pieces of the augchat TUI.

# Display Components

Header (header.go) - Persona avatar and name with the chat title.
StatusBar (statusbar.go) - Send state and key hints.
MessageBubble (message.go) - Committed and streaming message bubbles.
Sidebar (sidebar.go) - Stored chat list (ctrl+b).
MarkdownRenderer (markdown.go) - Glamour rendering of assistant content.

# Augmentations

AugmentationView (augmentation.go) draws the augmentation attached to a
message: a response button (focusable), an animation effect frame, or a
chart through a ChartRenderer. TextChartRenderer (chart.go) draws all eight
chart types with ASCII glyphs.

# Feedback

ToastManager (toast.go) - Auto-dismissing notifications, ticked by
ToastTickCmd.
*/
package components
