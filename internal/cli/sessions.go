// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - list, show, delete and export saved chats.

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/augchat/internal/storage"
	"github.com/jeranaias/augchat/internal/util"
)

// Export formats.
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

func newSessionsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "chats"},
		Short:   "Manage saved chats",
	}
	cmd.AddCommand(
		newSessionsListCommand(app),
		newSessionsShowCommand(app),
		newSessionsDeleteCommand(app),
		newSessionsExportCommand(app),
	)
	return cmd
}

// withStore opens the store for the duration of fn.
func (a *App) withStore(fn func(storage.Store) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// resolveID accepts a full chat ID or a unique prefix of one, as printed
// by `sessions list`.
func resolveID(store storage.Store, id string) (string, error) {
	metas, err := store.List()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, m := range metas {
		if m.ID == id {
			return id, nil
		}
		if strings.HasPrefix(m.ID, id) {
			matches = append(matches, m.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", storage.ErrConversationNotFound
	case 1:
		return matches[0], nil
	default:
		return "", NewUsageError("id", id, fmt.Sprintf("matches %d chats, use more characters", len(matches)))
	}
}

func newSessionsListCommand(app *App) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved chats, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withStore(func(store storage.Store) error {
				return OutputJSON(app.Out, app.jsonMode, "sessions list", func() (interface{}, error) {
					var (
						metas []storage.ConversationMeta
						err   error
					)
					if search != "" {
						metas, err = store.Search(search)
					} else {
						metas, err = store.List()
					}
					if err != nil {
						return nil, err
					}
					if !app.jsonMode {
						fmt.Fprint(app.Out, storage.FormatSessionList(metas))
					}
					return metas, nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "q", "", "only chats whose title or messages contain this text")
	return cmd
}

func newSessionsShowCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.jsonMode {
				format = FormatJSON
			}
			return app.withStore(func(store storage.Store) error {
				data, err := renderSession(store, args[0], format)
				if err != nil {
					return err
				}
				lang := "markdown"
				if format == FormatJSON {
					lang = "json"
				}
				return writeHighlighted(app.Out, string(data), lang)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", FormatMarkdown, "md or json")
	return cmd
}

func newSessionsDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved chat",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(func(store storage.Store) error {
				id, err := resolveID(store, args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(id); err != nil {
					return NewCommandError("sessions", "delete", id, err)
				}
				fmt.Fprintln(app.Out, SuccessStyle.Render("Deleted")+" "+id)
				return nil
			})
		},
	}
}

func newSessionsExportCommand(app *App) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a saved chat as Markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(func(store storage.Store) error {
				data, err := renderSession(store, args[0], format)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err := app.Out.Write(data)
					return err
				}
				if err := util.AtomicWriteFile(output, data, 0600); err != nil {
					return NewCommandError("sessions", "export", output, err)
				}
				fmt.Fprintln(app.Out, SuccessStyle.Render("Exported")+" "+output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", FormatMarkdown, "md or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

// renderSession loads a chat and renders it in format.
func renderSession(store storage.Store, id, format string) ([]byte, error) {
	format = strings.ToLower(format)
	if format != FormatMarkdown && format != FormatJSON {
		return nil, NewUsageError("format", format, "must be md or json")
	}
	id, err := resolveID(store, id)
	if err != nil {
		return nil, err
	}
	conv, err := store.Load(id)
	if err != nil {
		return nil, err
	}
	if format == FormatJSON {
		data, err := storage.ExportJSON(conv)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return []byte(storage.ExportMarkdown(conv)), nil
}
