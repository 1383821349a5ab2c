// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the augchat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.

# Color System (colors.go)

	Purple  - Assistant messages and focused response buttons
	Cyan    - Brand color and user highlights
	Emerald - "Yes" effects
	Rose    - Errors and "No" effects
	Amber   - Excitement effects

SeriesColors assigns one color per chart dataset, wrapping around.

# Theme System (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme) // "dark", "light" or "auto"
	bubble := theme.BubbleStyle("assistant").Render(text)

# Animation System (animations.go)

Spinners cover the sending and augmentation phases. EffectFrames holds one
short frame sequence per animation effect; EffectFrame clamps to the last
frame so a finished effect stays on screen. RenderBar draws the bars used
by the text chart renderer.
*/
package styles
