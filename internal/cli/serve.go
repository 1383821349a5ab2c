// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - run the reference chat endpoint.

package cli

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/augchat/internal/config"
	"github.com/jeranaias/augchat/internal/logging"
	"github.com/jeranaias/augchat/internal/ollama"
	"github.com/jeranaias/augchat/internal/server"
)

// healthInterval is how often serve re-checks a backend that supports it.
const healthInterval = time.Minute

type serveOptions struct {
	addr    string
	backend string
	delay   time.Duration
}

func newServeCommand(app *App) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the streaming chat endpoint",
		Long: `serve answers POST /api/chat with a streamed reply. The scripted backend
picks an augmentation from keywords in the input (chart, done, should i,
help, plain); the ollama backend relays a local model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.setupLogging(false); err != nil {
				return err
			}
			return runServe(cmd.Context(), app.Config(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "scripted or ollama (default from config)")
	cmd.Flags().DurationVar(&opts.delay, "delay", 40*time.Millisecond, "pause between words of scripted replies")
	return cmd
}

// newBackend builds the reply backend named by cfg.
func newBackend(cfg config.ServerConfig, delay time.Duration) (server.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "scripted":
		return &server.ScriptedBackend{Delay: delay}, nil
	case "ollama":
		client := ollama.NewClient(&ollama.ClientConfig{BaseURL: cfg.OllamaURL, DefaultModel: cfg.Model})
		return &server.OllamaBackend{Client: client, Model: cfg.Model}, nil
	default:
		return nil, NewUsageError("backend", cfg.Backend, "must be scripted or ollama")
	}
}

func runServe(ctx context.Context, cfg *config.Config, opts *serveOptions) error {
	sc := cfg.Server
	if opts.addr != "" {
		sc.Addr = opts.addr
	}
	if opts.backend != "" {
		sc.Backend = opts.backend
	}
	backend, err := newBackend(sc, opts.delay)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:          sc.Addr,
		Token:         sc.Token,
		LoginRedirect: sc.LoginRedirect,
		RateLimit:     sc.RateLimit,
		Burst:         int(sc.RateLimit*2) + 1,
		Logger:        log.Logger,
	}, backend)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if hc, ok := backend.(server.HealthChecker); ok {
		g.Go(func() error {
			watchHealth(ctx, backend.Name(), hc, healthInterval)
			return nil
		})
	}
	return g.Wait()
}

// watchHealth logs backend availability changes until ctx is done.
func watchHealth(ctx context.Context, name string, hc server.HealthChecker, every time.Duration) {
	logger := logging.Component("serve").With().Str("backend", name).Logger()
	healthy := true
	check := func() {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := hc.Check(cctx)
		switch {
		case err != nil && healthy:
			logger.Warn().Err(err).Msg("backend unavailable")
		case err == nil && !healthy:
			logger.Info().Msg("backend available again")
		}
		healthy = err == nil
	}

	check()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
