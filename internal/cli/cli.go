// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - the augchat command tree.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/augchat/internal/chatapi"
	"github.com/jeranaias/augchat/internal/config"
	"github.com/jeranaias/augchat/internal/logging"
	"github.com/jeranaias/augchat/internal/persona"
	"github.com/jeranaias/augchat/internal/storage"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APP
// =============================================================================

// App carries the streams and loaded configuration shared by every
// command.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	configPath string
	verbose    bool
	jsonMode   bool

	cfg *config.Config

	// logCloser is set once logging has been configured.
	logCloser io.Closer
}

// NewApp returns an App on the process streams.
func NewApp() *App {
	return &App{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Config returns the loaded configuration, or defaults before loading.
func (a *App) Config() *config.Config {
	if a.cfg == nil {
		return config.Default()
	}
	return a.cfg
}

// loadConfig reads --config or the default file.
func (a *App) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return NewCommandError("config", "load", "could not read configuration", err)
	}
	a.cfg = cfg
	config.SetGlobal(cfg)
	return nil
}

// setupLogging configures zerolog. toFile keeps log lines off a full
// screen UI.
func (a *App) setupLogging(toFile bool) error {
	if a.logCloser != nil {
		return nil
	}
	closer, err := logging.Setup(a.Config().Logging, logging.Options{ForceFile: toFile, Verbose: a.verbose})
	a.logCloser = closer
	return err
}

func (a *App) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// openStore opens the configured conversation store.
func (a *App) openStore() (storage.Store, error) {
	cfg := a.Config()
	dir, err := cfg.StorageDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.Backend, dir)
	if err != nil {
		return nil, NewCommandError("storage", "open", dir, err)
	}
	return store, nil
}

// loadPersonas builds the persona registry from the configured file.
func (a *App) loadPersonas() (*persona.Registry, error) {
	reg, err := persona.Load(a.Config().Persona.File)
	if err != nil {
		return nil, NewCommandError("personas", "load", a.Config().Persona.File, err)
	}
	return reg, nil
}

// newClient builds the chat endpoint client.
func (a *App) newClient(logger zerolog.Logger) *chatapi.Client {
	ep := a.Config().Endpoint
	return chatapi.NewClient(chatapi.Config{
		Endpoint:      ep.URL,
		Token:         ep.Token,
		HeaderTimeout: ep.HeaderTimeout(),
		RateLimit:     ep.RateLimit,
	}, chatapi.WithLogger(logger))
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the command tree. Running augchat without a
// subcommand starts a chat.
func NewRootCommand(app *App) *cobra.Command {
	chat := newChatCommand(app)

	root := &cobra.Command{
		Use:   "augchat",
		Short: "Chat with an assistant whose replies can carry buttons, effects and charts",
		Long: `augchat streams replies from a chat endpoint. A reply may end with an
augmentation: a response button, an animation effect or a chart.

Running augchat with no command opens the chat. It uses the full screen UI
on a terminal and line mode otherwise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.loadConfig()
		},
		RunE: chat.RunE,
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "config file (default ~/.augchat/config.toml)")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&app.jsonMode, "json", false, "JSON output where supported")

	// The chat flags also work on the root
	root.Flags().AddFlagSet(chat.Flags())

	root.AddCommand(
		chat,
		newServeCommand(app),
		newSessionsCommand(app),
		newSchemaCommand(app),
		newPersonasCommand(app),
		newVersionCommand(app),
	)
	return root
}

// Execute runs the command tree with args and returns the exit code.
func Execute(ctx context.Context, app *App, args []string) int {
	defer app.close()

	root := NewRootCommand(app)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		DisplayError(app.Err, err, app.jsonMode)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// VERSION
// =============================================================================

// VersionInfo is the `version --json` payload.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := VersionInfo{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			return OutputJSON(app.Out, app.jsonMode, "version", func() (interface{}, error) {
				if !app.jsonMode {
					fmt.Fprintf(app.Out, "augchat %s (%s, built %s, %s %s)\n",
						info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
				}
				return info, nil
			})
		},
	}
}
