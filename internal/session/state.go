// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// State is the position of a send in its request/response cycle.
type State int

const (
	// StateIdle accepts a new submission.
	StateIdle State = iota
	// StateSending has appended the user message and is waiting for headers.
	StateSending
	// StateStreamingContent is receiving text before the delimiter.
	StateStreamingContent
	// StateStreamingAugmentation is receiving the augmentation JSON.
	StateStreamingAugmentation
	// StateCommitting is waiting out the commit delay before appending the reply.
	StateCommitting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreamingContent:
		return "streaming-content"
	case StateStreamingAugmentation:
		return "streaming-augmentation"
	case StateCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// Busy reports whether a send is in flight.
func (s State) Busy() bool {
	return s != StateIdle
}

// Streaming reports whether reply text is arriving.
func (s State) Streaming() bool {
	return s == StateStreamingContent || s == StateStreamingAugmentation
}
