// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/util"
)

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList formats a list of sessions for display in a table format.
// Returns a human-readable string with session ID, update time, message count, and preview.
func FormatSessionList(sessions []ConversationMeta) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	rule := strings.Repeat("-", 72) + "\n"
	sb.WriteString("Sessions:\n")
	sb.WriteString(rule)
	sb.WriteString(formatPadded("ID", 10) + " " + formatPadded("Updated", 17) + " " +
		formatPadded("Persona", 12) + " " + formatPadded("Msgs", 5) + " Title\n")
	sb.WriteString(rule)

	for _, s := range sessions {
		idStr := s.ID
		if len(idStr) > 8 {
			idStr = idStr[:8]
		}
		sb.WriteString(formatPadded(idStr, 10) + " " +
			formatPadded(s.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			formatPadded(truncateString(s.Persona, 12), 12) + " " +
			formatPadded(strconv.Itoa(s.MessageCount), 5) + " " +
			truncateString(s.Title, 30) + "\n")
	}
	return sb.String()
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	return util.TruncateRunes(s, maxLen)
}

// formatPadded pads a string to the specified display width with spaces.
func formatPadded(s string, width int) string {
	return util.PadRight(s, width)
}

func singleLine(s string) string {
	return util.SingleLine(s)
}

// =============================================================================
// SESSION EXPORT
// =============================================================================

// ExportMarkdown renders the conversation as Markdown. Augmentations are
// summarized as a quoted line under their message.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.GetTitle() + "\n\n")
	if conv.Persona.Name != "" {
		sb.WriteString("Persona: " + conv.Persona.Name + "\n\n")
	}
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		role := "**" + msg.Role.DisplayName() + "**"
		if msg.Role == model.RoleAssistant && conv.Persona.Name != "" {
			role = "**" + conv.Persona.Name + "**"
		}
		sb.WriteString(role + " (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		if d := augment.Describe(msg.Augmentation); d != "" {
			sb.WriteString("\n\n> " + d)
		}
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON exports the conversation as pretty-printed JSON.
func ExportJSON(conv *model.Conversation) ([]byte, error) {
	return json.MarshalIndent(conv, "", "  ")
}
