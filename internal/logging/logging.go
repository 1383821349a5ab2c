// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/augchat/internal/config"
)

// Options adjusts Setup for the running command.
type Options struct {
	// ForceFile sends output to a file even when cfg.File is empty.
	// The TUI sets it so log lines never land on the alt screen.
	ForceFile bool
	// Verbose lowers the level to debug.
	Verbose bool
}

// DefaultLogFile is used when a file sink is needed and none is configured.
func DefaultLogFile() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "augchat.log")
	}
	return filepath.Join(dir, "augchat.log")
}

// Setup installs log.Logger according to cfg and returns a closer for any
// opened file. The closer is never nil.
func Setup(cfg config.LoggingConfig, opts Options) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if opts.Verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	path := cfg.File
	if path == "" && opts.ForceFile {
		path = DefaultLogFile()
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return closer, errors.Wrap(err, "create log directory")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return closer, errors.Wrapf(err, "open log file %s", path)
		}
		out, closer = f, f
	}

	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    path != "",
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger().Level(level)
	return closer, nil
}

// Component returns a child of the global logger tagged with name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
