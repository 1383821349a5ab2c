// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/util"
)

func newPersonasCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the available personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := app.loadPersonas()
			if err != nil {
				return err
			}
			def := app.Config().Persona.Default
			return OutputJSON(app.Out, app.jsonMode, "personas", func() (interface{}, error) {
				list := reg.List()
				if !app.jsonMode {
					printPersonas(app, list, def)
				}
				return list, nil
			})
		},
	}
}

func printPersonas(app *App, list []model.Persona, def string) {
	fmt.Fprintln(app.Out, TitleStyle.Render("Personas"))
	for _, p := range list {
		mark := "  "
		if p.ID == def {
			mark = "* "
		}
		avatar := p.Avatar
		if avatar == "" {
			avatar = " "
		}
		fmt.Fprintf(app.Out, "%s%s %s %s\n",
			mark,
			avatar,
			LabelStyle.Render(util.PadRight(p.ID, 12)),
			ValueStyle.Render(p.DisplayName()+" ("+p.Role+")"))
	}
}
