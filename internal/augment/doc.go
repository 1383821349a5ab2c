// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package augment defines the augmentation payload that may trail an
// assistant reply and validates it.
//
// An augmentation arrives as JSON of the form
//
//	{"augmentation": "<tag>", "data": <payload>}
//
// where the tag is one of response-button, animation, chart or none. Each
// tag fixes the shape of data. Parse tries the alternatives in order and
// returns the first match as a typed value; callers switch on the concrete
// type to render it:
//
//	switch a := aug.(type) {
//	case augment.ResponseButton:
//	    // offer a.ButtonText, submit a.ResponseText on click
//	case augment.Animation:
//	    // play a.Effect
//	case augment.Chart:
//	    // draw a.Type with a.Data
//	case augment.None:
//	}
//
// A payload that fails to parse or matches no alternative is not fatal. The
// Validator logs the reason and the message is shown as plain content.
package augment
