// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/spf13/cobra"

	"github.com/jeranaias/augchat/internal/augment"
)

func newSchemaCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the augmentation trailer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := augment.SchemaJSON()
			if err != nil {
				return NewCommandError("schema", "generate", "could not build schema", err)
			}
			return writeHighlighted(app.Out, string(data)+"\n", "json")
		},
	}
}
