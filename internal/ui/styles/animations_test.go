// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinnerConfig(t *testing.T) {
	assert.Equal(t, time.Second/10, LineSpinner.Duration())
	assert.Equal(t, time.Second, SpinnerConfig{}.Duration())

	assert.Equal(t, "|", LineSpinner.Frame(0))
	assert.Equal(t, "/", LineSpinner.Frame(5))
	assert.Equal(t, "|", LineSpinner.Frame(-3))
	assert.Empty(t, SpinnerConfig{}.Frame(2))
}

func TestEffectFrames_AllEffects(t *testing.T) {
	for _, effect := range []string{"Yes", "No", "Excitement", "Success"} {
		frames := EffectFrames[effect]
		if assert.NotEmpty(t, frames, effect) {
			last := len(frames) - 1
			assert.Equal(t, frames[last], EffectFrame(effect, last+10), "clamped to last frame")
			assert.Equal(t, frames[0], EffectFrame(effect, -1))
			assert.True(t, EffectDone(effect, last))
			assert.False(t, EffectDone(effect, 0))
		}
	}
}

func TestEffectFrame_Unknown(t *testing.T) {
	assert.Empty(t, EffectFrame("Confetti", 0))
	assert.True(t, EffectDone("Confetti", 0))
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		fraction float64
		want     string
	}{
		{"empty", 4, 0, "    "},
		{"full", 4, 1, "####"},
		{"half", 4, 0.5, "##  "},
		{"clamped above", 3, 2, "###"},
		{"clamped below", 3, -1, "   "},
		{"zero width", 0, 0.5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderBar(tt.width, tt.fraction))
		})
	}
}

func TestRenderBar_Partial(t *testing.T) {
	bar := RenderBar(4, 0.6)
	assert.Len(t, bar, 4)
	assert.True(t, strings.HasPrefix(bar, "##"))
	assert.NotEqual(t, " ", string(bar[2]), "partial cell drawn")
}
