// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// CONTENT BUFFER
// =============================================================================

// ContentBuffer throttles live content updates to a capped frame rate.
// Every content event carries the full text so far, so the buffer keeps
// only the latest value and drops the ones in between. Set is called from
// the controller goroutine while Flush runs in the Bubble Tea loop.
type ContentBuffer struct {
	mu        sync.Mutex
	content   string
	dirty     bool
	updates   int
	lastFlush time.Time
	interval  time.Duration
	now       func() time.Time
}

// NewContentBuffer creates a buffer flushing at most fps times per second.
// fps outside 1-60 falls back to 30.
func NewContentBuffer(fps int) *ContentBuffer {
	if fps <= 0 || fps > 60 {
		fps = 30
	}
	return &ContentBuffer{
		interval: time.Second / time.Duration(fps),
		now:      time.Now,
	}
}

// Set stores the latest content.
func (b *ContentBuffer) Set(content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if content == b.content && !b.dirty {
		return
	}
	b.content = content
	b.dirty = true
	b.updates++
}

// Flush returns the latest content if it changed and the frame interval has
// passed since the previous flush.
func (b *ContentBuffer) Flush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty || b.now().Sub(b.lastFlush) < b.interval {
		return "", false
	}
	return b.takeLocked(), true
}

// ForceFlush returns the latest content if it changed, ignoring the frame
// interval. Use it before a commit so the final frame is never skipped.
func (b *ContentBuffer) ForceFlush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty {
		return "", false
	}
	return b.takeLocked(), true
}

func (b *ContentBuffer) takeLocked() string {
	b.dirty = false
	b.updates = 0
	b.lastFlush = b.now()
	return b.content
}

// Pending returns how many updates were coalesced since the last flush.
func (b *ContentBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updates
}

// Reset clears the buffer, for example after a commit or a failure.
func (b *ContentBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = ""
	b.dirty = false
	b.updates = 0
}

// Interval returns the minimum time between flushes.
func (b *ContentBuffer) Interval() time.Duration {
	return b.interval
}

// =============================================================================
// FRAME TICKS
// =============================================================================

// frameTickMsg drives content flushes and effect animation.
type frameTickMsg struct {
	Time time.Time
}

// frameTick schedules the next frame.
func frameTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return frameTickMsg{Time: t}
	})
}
