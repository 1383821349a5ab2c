// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Persona is the character a conversation is held with. Prompt is sent with
// every request; Name and Avatar are display-only.
type Persona struct {
	ID     string `json:"id" yaml:"id"`
	Role   string `json:"role,omitempty" yaml:"role"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar"`
	Name   string `json:"name" yaml:"name"`
	Prompt string `json:"prompt,omitempty" yaml:"prompt"`
}

// DisplayName returns the persona name, falling back to the assistant label.
func (p Persona) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return RoleAssistant.DisplayName()
}
