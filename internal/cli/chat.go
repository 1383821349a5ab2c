// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - the chat command: full screen UI on a terminal, line mode
// otherwise.

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/persona"
	"github.com/jeranaias/augchat/internal/storage"
	"github.com/jeranaias/augchat/internal/ui/chat"
	"github.com/jeranaias/augchat/internal/ui/styles"
)

// chatOptions are the chat command flags.
type chatOptions struct {
	plain   bool
	persona string
	session string
	sidebar bool
}

func newChatCommand(app *App) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open a chat (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), app, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "line mode even on a terminal")
	cmd.Flags().StringVarP(&opts.persona, "persona", "p", "", "persona ID for a new chat")
	cmd.Flags().StringVarP(&opts.session, "session", "s", "", "open a saved chat by ID")
	cmd.Flags().BoolVar(&opts.sidebar, "sidebar", false, "show the saved chat list")
	return cmd
}

// chatDeps are the pieces both chat front ends share.
type chatDeps struct {
	store    storage.Store
	personas *persona.Registry
	conv     *model.Conversation
}

func (a *App) chatDeps(opts *chatOptions) (*chatDeps, error) {
	personas, err := a.loadPersonas()
	if err != nil {
		return nil, err
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	deps := &chatDeps{store: store, personas: personas}
	if opts.session != "" {
		conv, err := store.Load(opts.session)
		if err != nil {
			store.Close()
			return nil, err
		}
		deps.conv = conv
	} else {
		id := opts.persona
		if id == "" {
			id = a.Config().Persona.Default
		}
		if opts.persona != "" {
			if _, ok := personas.Get(id); !ok {
				store.Close()
				return nil, NewUsageError("persona", id, "unknown persona, see `augchat personas`")
			}
		}
		deps.conv = model.NewConversation(personas.Resolve(id))
	}
	return deps, nil
}

func runChat(ctx context.Context, app *App, opts *chatOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	plain := opts.plain || !Interactive()
	if err := app.setupLogging(!plain); err != nil {
		return err
	}

	deps, err := app.chatDeps(opts)
	if err != nil {
		return err
	}
	defer deps.store.Close()

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if path := app.Config().Persona.File; path != "" {
		w := persona.NewWatcher(path, deps.personas, log.Logger)
		g.Go(func() error {
			// Personas stay as loaded if the file cannot be watched
			if err := w.Run(ctx); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("persona watcher stopped")
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		if plain {
			return runREPL(ctx, app, deps)
		}
		return runTUI(app, deps, opts)
	})
	return g.Wait()
}

func runTUI(app *App, deps *chatDeps, opts *chatOptions) error {
	cfg := app.Config()
	m := chat.New(chat.Options{
		Conversation: deps.conv,
		Sender:       app.newClient(log.Logger),
		Store:        deps.store,
		Personas:     deps.personas,
		Theme:        styles.NewTheme(cfg.UI.Theme),
		FPS:          cfg.UI.FPS,
		CommitDelay:  cfg.UI.CommitDelay(),
		Location:     cfg.Endpoint.Location,
		ShowSidebar:  opts.sidebar || cfg.UI.Sidebar,
		Logger:       log.Logger,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(app.In), tea.WithOutput(app.Out))
	_, err := p.Run()
	return err
}
