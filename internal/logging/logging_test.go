// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/augchat/internal/config"
)

func restoreLogger(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestSetup_JSONFile(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "out.log")

	closer, err := Setup(config.LoggingConfig{Level: "warn", File: path, JSON: true}, Options{})
	require.NoError(t, err)

	log.Info().Msg("dropped")
	logger := Component("stream")
	logger.Warn().Str("kind", "chart").Msg("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "stream", entry["component"])
	assert.Equal(t, "warn", entry["level"])
}

func TestSetup_VerboseLowersLevel(t *testing.T) {
	restoreLogger(t)
	closer, err := Setup(config.LoggingConfig{Level: "error", File: filepath.Join(t.TempDir(), "x.log")}, Options{Verbose: true})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetup_ForceFileUsesDefault(t *testing.T) {
	restoreLogger(t)
	home := t.TempDir()
	t.Setenv("AUGCHAT_HOME", home)

	closer, err := Setup(config.LoggingConfig{Level: "info"}, Options{ForceFile: true})
	require.NoError(t, err)
	log.Info().Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(home, "augchat.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
