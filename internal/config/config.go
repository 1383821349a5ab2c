// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/augchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete augchat configuration.
type Config struct {
	Endpoint EndpointConfig `toml:"endpoint"`
	Persona  PersonaConfig  `toml:"persona"`
	Storage  StorageConfig  `toml:"storage"`
	UI       UIConfig       `toml:"ui"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
}

// EndpointConfig describes the chat endpoint the client talks to.
type EndpointConfig struct {
	// URL of the streaming chat endpoint
	URL string `toml:"url"`
	// Token is sent as a bearer token when set
	Token string `toml:"token"`
	// Location is the callback URL handed to the login redirect
	Location string `toml:"location"`
	// TimeoutSecs bounds the wait for response headers (not the stream)
	TimeoutSecs int `toml:"timeout_secs"`
	// RateLimit is outbound requests per second (0 = unlimited)
	RateLimit float64 `toml:"rate_limit"`
}

// PersonaConfig selects where personas come from.
type PersonaConfig struct {
	// File is a YAML persona file; empty uses the built-in set
	File string `toml:"file"`
	// Default is the persona ID used for new conversations
	Default string `toml:"default"`
}

// StorageConfig controls conversation persistence.
type StorageConfig struct {
	// Backend is "json" or "sqlite"
	Backend string `toml:"backend"`
	// Dir is the storage directory (default ~/.augchat/conversations)
	Dir string `toml:"dir"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// CommitDelayMs is the pause between stream end and commit
	CommitDelayMs int `toml:"commit_delay_ms"`
	// FPS is the animation frame rate
	FPS int `toml:"fps"`
	// Sidebar shows the session list on start
	Sidebar bool `toml:"sidebar"`
}

// ServerConfig configures `augchat serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
	// Token, when set, is required as a bearer token on /api/chat
	Token string `toml:"token"`
	// LoginRedirect is returned in 401 bodies
	LoginRedirect string `toml:"login_redirect"`
	// Backend is "scripted" or "ollama"
	Backend   string  `toml:"backend"`
	OllamaURL string  `toml:"ollama_url"`
	Model     string  `toml:"model"`
	RateLimit float64 `toml:"rate_limit"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error
	Level string `toml:"level"`
	// File receives logs; empty means stderr (the TUI always uses a file)
	File string `toml:"file"`
	// JSON disables the console writer
	JSON bool `toml:"json"`
}

// Duration helpers used by callers that want time values.

// HeaderTimeout returns the endpoint header timeout.
func (e EndpointConfig) HeaderTimeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// CommitDelay returns the UI commit delay.
func (u UIConfig) CommitDelay() time.Duration {
	return time.Duration(u.CommitDelayMs) * time.Millisecond
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			URL:         "http://127.0.0.1:8787/api/chat",
			TimeoutSecs: 30,
			RateLimit:   2,
		},
		Persona: PersonaConfig{
			Default: "assistant",
		},
		Storage: StorageConfig{
			Backend: "json",
		},
		UI: UIConfig{
			Theme:         "dark",
			CommitDelayMs: 1,
			FPS:           12,
		},
		Server: ServerConfig{
			Addr:          "127.0.0.1:8787",
			LoginRedirect: "/login",
			Backend:       "scripted",
			OllamaURL:     "http://127.0.0.1:11434",
			Model:         "qwen2.5:7b",
			RateLimit:     5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the augchat configuration directory path.
// AUGCHAT_HOME overrides the default ~/.augchat.
func ConfigDir() (string, error) {
	if home := os.Getenv("AUGCHAT_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".augchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StorageDir resolves the conversation directory, defaulting under ConfigDir.
func (c *Config) StorageDir() (string, error) {
	if c.Storage.Dir != "" {
		return expandHome(c.Storage.Dir), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "conversations"), nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file, falling back to defaults when it does
// not exist. Environment overrides are applied before validation.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid config")
		}
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from a specific TOML file with full validation.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		log.Warn().Str("path", path).Strs("keys", keys).Msg("unknown config keys ignored")
	}

	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.Endpoint.URL == "" {
		cfg.Endpoint.URL = d.Endpoint.URL
	}
	if cfg.Endpoint.TimeoutSecs == 0 {
		cfg.Endpoint.TimeoutSecs = d.Endpoint.TimeoutSecs
	}

	if cfg.Persona.Default == "" {
		cfg.Persona.Default = d.Persona.Default
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = d.Storage.Backend
	}

	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}
	// A zero delay would commit inside the same tick as the last chunk
	if cfg.UI.CommitDelayMs <= 0 {
		cfg.UI.CommitDelayMs = d.UI.CommitDelayMs
	}
	if cfg.UI.FPS == 0 {
		cfg.UI.FPS = d.UI.FPS
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
	if cfg.Server.LoginRedirect == "" {
		cfg.Server.LoginRedirect = d.Server.LoginRedirect
	}
	if cfg.Server.Backend == "" {
		cfg.Server.Backend = d.Server.Backend
	}
	if cfg.Server.OllamaURL == "" {
		cfg.Server.OllamaURL = d.Server.OllamaURL
	}
	if cfg.Server.Model == "" {
		cfg.Server.Model = d.Server.Model
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration to path with 0600 permissions.
func SaveTo(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# augchat configuration file\n")
	buf.WriteString("# Generated by augchat - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	// Tokens live in this file, so keep it owner-only
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if err := validateHTTPURL(c.Endpoint.URL); err != nil {
		add("endpoint.url", err.Error())
	}
	if c.Endpoint.TimeoutSecs < 0 {
		add("endpoint.timeout_secs", "must not be negative")
	}
	if c.Endpoint.RateLimit < 0 {
		add("endpoint.rate_limit", "must not be negative")
	}

	switch c.Storage.Backend {
	case "json", "sqlite":
	default:
		add("storage.backend", fmt.Sprintf("unknown backend %q (want json or sqlite)", c.Storage.Backend))
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		add("ui.theme", fmt.Sprintf("unknown theme %q", c.UI.Theme))
	}
	if c.UI.CommitDelayMs < 1 {
		add("ui.commit_delay_ms", "must be at least 1")
	}
	if c.UI.FPS < 1 || c.UI.FPS > 60 {
		add("ui.fps", "must be between 1 and 60")
	}

	switch c.Server.Backend {
	case "scripted":
	case "ollama":
		if err := validateHTTPURL(c.Server.OllamaURL); err != nil {
			add("server.ollama_url", err.Error())
		}
		if c.Server.Model == "" {
			add("server.model", "required for the ollama backend")
		}
	default:
		add("server.backend", fmt.Sprintf("unknown backend %q (want scripted or ollama)", c.Server.Backend))
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		add("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "invalid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - AUGCHAT_ENDPOINT: overrides endpoint.url
//   - AUGCHAT_TOKEN: overrides endpoint.token
//   - AUGCHAT_LOCATION: overrides endpoint.location
//   - AUGCHAT_PERSONA: overrides persona.default
//   - AUGCHAT_STORAGE: overrides storage.backend
//   - AUGCHAT_SERVER_TOKEN: overrides server.token
//   - AUGCHAT_OLLAMA_URL: overrides server.ollama_url
//   - AUGCHAT_MODEL: overrides server.model
//   - AUGCHAT_LOG_LEVEL: overrides logging.level
//   - AUGCHAT_LOG_JSON: overrides logging.json
func (c *Config) ApplyEnvOverrides() {
	str := map[string]*string{
		"AUGCHAT_ENDPOINT":     &c.Endpoint.URL,
		"AUGCHAT_TOKEN":        &c.Endpoint.Token,
		"AUGCHAT_LOCATION":     &c.Endpoint.Location,
		"AUGCHAT_PERSONA":      &c.Persona.Default,
		"AUGCHAT_STORAGE":      &c.Storage.Backend,
		"AUGCHAT_SERVER_TOKEN": &c.Server.Token,
		"AUGCHAT_OLLAMA_URL":   &c.Server.OllamaURL,
		"AUGCHAT_MODEL":        &c.Server.Model,
		"AUGCHAT_LOG_LEVEL":    &c.Logging.Level,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("AUGCHAT_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.JSON = b
		}
	}
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			log.Warn().Err(err).Msg("config load failed, using defaults")
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
