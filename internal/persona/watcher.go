// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a Registry when its persona file changes.
type Watcher struct {
	path     string
	registry *Registry
	logger   zerolog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for path feeding registry.
func NewWatcher(path string, registry *Registry, logger zerolog.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		registry: registry,
		logger:   logger.With().Str("component", "persona-watcher").Logger(),
		debounce: DefaultDebounce,
	}
}

// Run watches until ctx is cancelled. A file that fails to parse leaves the
// previous personas in place.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer fw.Close()

	// Watch the directory: editors often replace the file by rename
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(w.path))
	}
	w.logger.Debug().Str("path", w.path).Msg("watching persona file")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	personas, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Msg("persona reload failed, keeping previous set")
		return
	}
	w.registry.Replace(personas)
	w.logger.Info().Int("count", len(personas)).Msg("personas reloaded")
}
