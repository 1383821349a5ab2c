// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "github.com/jeranaias/augchat/internal/model"

// EventType identifies an Event.
type EventType int

const (
	// EventStateChanged carries the new State.
	EventStateChanged EventType = iota
	// EventContent carries the live content; each supersedes the previous.
	EventContent
	// EventAugmentationStarted fires once, when the delimiter is seen.
	EventAugmentationStarted
	// EventCommitted carries the appended assistant Message.
	EventCommitted
	// EventFailed carries the error that aborted a send.
	EventFailed
	// EventCleared fires after the history was reset or replaced.
	EventCleared
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state"
	case EventContent:
		return "content"
	case EventAugmentationStarted:
		return "augmentation-started"
	case EventCommitted:
		return "committed"
	case EventFailed:
		return "failed"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event is delivered to the controller's event sink in the order it occurred
// within one send. The controller is idle again before the last events of a
// send are delivered, so a sink that lets the user submit from another
// goroutine can see the next send's Sending ahead of the previous Idle; Seq
// tells them apart.
type Event struct {
	Type    EventType
	State   State
	Content string
	Message model.Message
	Err     error
	// Seq numbers the send that produced the event, starting at 1. Clear
	// and Load events carry zero.
	Seq uint64
}
