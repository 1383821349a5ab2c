// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/ui/styles"
)

// =============================================================================
// AUGMENTATION VIEW
// =============================================================================

// AugmentationView carries what is needed to draw one augmentation.
type AugmentationView struct {
	Theme  *styles.Theme
	Charts ChartRenderer
	Width  int

	// Focused highlights a response button.
	Focused bool

	// Frame is the current frame of an animation effect.
	Frame int
}

// Render draws a. An absent augmentation renders as "".
func (v AugmentationView) Render(a augment.Augmentation) string {
	switch aug := a.(type) {
	case augment.ResponseButton:
		return v.button(aug)
	case augment.Animation:
		return v.effect(aug.Effect)
	case augment.Chart:
		return v.chart(aug)
	}
	return ""
}

func (v AugmentationView) button(b augment.ResponseButton) string {
	label := b.ButtonText
	if label == "" {
		label = b.ResponseText
	}
	if v.Focused {
		return v.Theme.ButtonFocused.Render("> " + label)
	}
	return v.Theme.Button.Render(label) + " " + v.Theme.Muted.Render("tab to focus")
}

func (v AugmentationView) effect(e augment.Effect) string {
	frame := styles.EffectFrame(string(e), v.Frame)
	switch e {
	case augment.EffectYes, augment.EffectSuccess:
		return v.Theme.EffectYes.Render(frame)
	case augment.EffectNo:
		return v.Theme.EffectNo.Render(frame)
	default:
		return v.Theme.EffectBurst.Render(frame)
	}
}

func (v AugmentationView) chart(c augment.Chart) string {
	if v.Charts == nil {
		return v.Theme.Muted.Render(augment.Describe(c))
	}
	// Box border and padding take four columns
	out, err := v.Charts.Render(c.Type, c.Data, c.Options, v.Width-4)
	if err != nil {
		return v.Theme.Muted.Render(augment.Describe(c))
	}
	return v.Theme.ChartBox.Render(out)
}
