// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// CONTENT BUFFER TESTS
// =============================================================================

func newTestBuffer(fps int, now *time.Time) *ContentBuffer {
	b := NewContentBuffer(fps)
	b.now = func() time.Time { return *now }
	return b
}

func TestNewContentBuffer_Interval(t *testing.T) {
	assert.Equal(t, time.Second/10, NewContentBuffer(10).Interval())
	assert.Equal(t, time.Second/30, NewContentBuffer(0).Interval())
	assert.Equal(t, time.Second/30, NewContentBuffer(120).Interval())
}

func TestContentBuffer_LatestWins(t *testing.T) {
	now := time.Unix(100, 0)
	b := newTestBuffer(10, &now)

	b.Set("He")
	b.Set("Hello")
	b.Set("Hello, wor")
	assert.Equal(t, 3, b.Pending())

	content, ok := b.Flush()
	assert.True(t, ok)
	assert.Equal(t, "Hello, wor", content)
	assert.Zero(t, b.Pending())

	// Nothing new
	_, ok = b.Flush()
	assert.False(t, ok)
}

func TestContentBuffer_Throttled(t *testing.T) {
	now := time.Unix(100, 0)
	b := newTestBuffer(10, &now)

	b.Set("a")
	_, ok := b.Flush()
	assert.True(t, ok)

	b.Set("ab")
	now = now.Add(50 * time.Millisecond)
	_, ok = b.Flush()
	assert.False(t, ok, "inside the frame interval")

	now = now.Add(50 * time.Millisecond)
	content, ok := b.Flush()
	assert.True(t, ok)
	assert.Equal(t, "ab", content)
}

func TestContentBuffer_ForceFlush(t *testing.T) {
	now := time.Unix(100, 0)
	b := newTestBuffer(10, &now)

	b.Set("a")
	b.Flush()
	b.Set("final")

	content, ok := b.ForceFlush()
	assert.True(t, ok)
	assert.Equal(t, "final", content)

	_, ok = b.ForceFlush()
	assert.False(t, ok)
}

func TestContentBuffer_SameContentNotDirty(t *testing.T) {
	now := time.Unix(100, 0)
	b := newTestBuffer(10, &now)

	b.Set("x")
	b.ForceFlush()
	b.Set("x")
	_, ok := b.ForceFlush()
	assert.False(t, ok)
}

func TestContentBuffer_Reset(t *testing.T) {
	b := NewContentBuffer(30)
	b.Set("partial")
	b.Reset()

	_, ok := b.ForceFlush()
	assert.False(t, ok)
	assert.Zero(t, b.Pending())
}

func TestContentBuffer_Concurrent(t *testing.T) {
	b := NewContentBuffer(60)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			b.Set(string(rune('a' + i%26)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			b.Flush()
		}
	}()
	wg.Wait()
	b.Set("done")
	content, ok := b.ForceFlush()
	assert.True(t, ok)
	assert.Equal(t, "done", content)
}
