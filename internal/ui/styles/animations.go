// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"time"
)

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// SpinnerConfig holds the configuration for a frame animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// Frame returns frame i, wrapping around.
func (s SpinnerConfig) Frame(i int) string {
	if len(s.Frames) == 0 {
		return ""
	}
	if i < 0 {
		i = 0
	}
	return s.Frames[i%len(s.Frames)]
}

// DotsSpinner is shown while a request is being sent.
var DotsSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// LineSpinner is shown while the augmentation segment is arriving.
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// =============================================================================
// EFFECT ANIMATIONS
// =============================================================================

// EffectFrames are the frame sequences for the four animation effects, keyed
// by the wire value. Each plays once and then holds its last frame.
var EffectFrames = map[string][]string{
	"Yes": {
		"    ",
		"  / ",
		" \\/ ",
		" \\/ YES",
	},
	"No": {
		"    ",
		" \\  ",
		" \\/ ",
		" >< NO",
	},
	"Excitement": {
		"  *  ",
		" *+* ",
		"*+o+*",
		"+ * +",
		"* + *",
		" !!! ",
	},
	"Success": {
		"  .     .  ",
		" . * . * . ",
		"* + o * + *",
		". * + o + .",
		" * . * . * ",
		"[  SUCCESS  ]",
	},
}

// EffectFPS is the playback rate of effect animations.
const EffectFPS = 8

// EffectFrame returns frame i of effect, clamped to the final frame. An
// unknown effect has no frames.
func EffectFrame(effect string, i int) string {
	frames := EffectFrames[effect]
	if len(frames) == 0 {
		return ""
	}
	if i < 0 {
		i = 0
	}
	if i >= len(frames) {
		i = len(frames) - 1
	}
	return frames[i]
}

// EffectDone reports whether frame i is the last frame of effect.
func EffectDone(effect string, i int) bool {
	return i >= len(EffectFrames[effect])-1
}

// =============================================================================
// BAR GLYPHS
// =============================================================================

// Bar characters for chart rendering (ASCII-safe).
var (
	BarFull    = "#"
	BarEmpty   = " "
	BarPartial = []string{".", ":", "+"}
	// SparkChars maps a 0-7 level to a sparkline cell.
	SparkChars = []string{"_", ".", "-", "~", "=", "+", "*", "#"}
)

// RenderBar draws a bar of width cells filled to fraction (0-1).
func RenderBar(width int, fraction float64) string {
	if width <= 0 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := float64(width) * fraction
	full := int(filled)
	partial := int((filled - float64(full)) * float64(len(BarPartial)+1))

	var sb strings.Builder
	sb.Grow(width)
	for i := 0; i < full && i < width; i++ {
		sb.WriteString(BarFull)
	}
	if full < width && partial > 0 {
		sb.WriteString(BarPartial[partial-1])
		full++
	}
	for i := full; i < width; i++ {
		sb.WriteString(BarEmpty)
	}
	return sb.String()
}
