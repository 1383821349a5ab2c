// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package augment

import (
	"fmt"
	"strings"
)

// Describe returns a one-line plain-text summary of a, for transcripts and
// line-mode output. It returns "" for an absent augmentation.
func Describe(a Augmentation) string {
	switch v := a.(type) {
	case ResponseButton:
		return fmt.Sprintf("[%s] -> %q", v.ButtonText, v.ResponseText)
	case Animation:
		return "animation: " + string(v.Effect)
	case Chart:
		names := make([]string, 0, len(v.Data.Datasets))
		for _, ds := range v.Data.Datasets {
			names = append(names, ds.Label)
		}
		s := fmt.Sprintf("%s chart, %d labels", v.Type, len(v.Data.Labels))
		if len(names) > 0 {
			s += ", datasets: " + strings.Join(names, ", ")
		}
		return s
	}
	return ""
}
