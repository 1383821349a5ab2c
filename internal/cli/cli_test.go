// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/chatapi"
	"github.com/jeranaias/augchat/internal/config"
	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/persona"
	"github.com/jeranaias/augchat/internal/server"
	"github.com/jeranaias/augchat/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

type testEnv struct {
	configPath string
	storeDir   string
	out        *bytes.Buffer
	errOut     *bytes.Buffer
}

// newTestEnv writes a config pointing at endpoint with a temporary store.
func newTestEnv(t *testing.T, endpoint string) *testEnv {
	t.Helper()
	ForceColorsEnabled(false)

	dir := t.TempDir()
	env := &testEnv{
		configPath: filepath.Join(dir, "config.toml"),
		storeDir:   filepath.Join(dir, "conversations"),
		out:        &bytes.Buffer{},
		errOut:     &bytes.Buffer{},
	}
	if endpoint == "" {
		endpoint = "http://127.0.0.1:1/api/chat"
	}
	cfg := fmt.Sprintf(`
[endpoint]
url = %q
rate_limit = 0

[storage]
backend = "json"
dir = %q

[ui]
commit_delay_ms = 1

[logging]
level = "error"
file = %q
`, endpoint, env.storeDir, filepath.Join(dir, "augchat.log"))
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0600))
	return env
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) int {
	t.Helper()
	e.out.Reset()
	e.errOut.Reset()
	app := &App{In: strings.NewReader(stdin), Out: e.out, Err: e.errOut}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return Execute(ctx, app, append([]string{"--config", e.configPath}, args...))
}

func (e *testEnv) store(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.Open(storage.BackendJSON, e.storeDir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedChat(t *testing.T, store storage.Store) *model.Conversation {
	t.Helper()
	conv := model.NewConversation(persona.Builtin()[0])
	conv.Append(model.NewUserMessage("Quarterly numbers please"))
	conv.Append(model.NewAssistantMessage("Here they are.", augment.Animation{Effect: augment.EffectSuccess}))
	require.NoError(t, store.Save(conv))
	return conv
}

func scriptedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := server.New(server.Config{Logger: zerolog.Nop()}, &server.ScriptedBackend{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// =============================================================================
// SIMPLE COMMANDS
// =============================================================================

func TestExecute_Version(t *testing.T) {
	env := newTestEnv(t, "")

	require.Equal(t, ExitSuccess, env.run(t, "", "version"))
	assert.Contains(t, env.out.String(), "augchat "+Version)
}

func TestExecute_VersionJSON(t *testing.T) {
	env := newTestEnv(t, "")

	require.Equal(t, ExitSuccess, env.run(t, "", "version", "--json"))
	var resp struct {
		Success bool        `json:"success"`
		Data    VersionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, Version, resp.Data.Version)
}

func TestExecute_Schema(t *testing.T) {
	env := newTestEnv(t, "")

	require.Equal(t, ExitSuccess, env.run(t, "", "schema"))
	assert.True(t, json.Valid(env.out.Bytes()))
	assert.Contains(t, env.out.String(), "response-button")
}

func TestExecute_Personas(t *testing.T) {
	env := newTestEnv(t, "")

	require.Equal(t, ExitSuccess, env.run(t, "", "personas"))
	out := env.out.String()
	for _, id := range []string{"assistant", "coach", "analyst"} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "* ")
}

func TestExecute_BadConfig(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, os.WriteFile(env.configPath, []byte("[ui]\ntheme = \"pink\"\n"), 0600))

	assert.Equal(t, ExitConfigError, env.run(t, "", "version"))
	assert.Contains(t, env.errOut.String(), "[ERROR]")
}

func TestExecute_UnknownCommand(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, ExitGeneralError, env.run(t, "", "frobnicate"))
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestExecute_SessionsLifecycle(t *testing.T) {
	env := newTestEnv(t, "")
	conv := seedChat(t, env.store(t))
	short := conv.ID[:8]

	require.Equal(t, ExitSuccess, env.run(t, "", "sessions", "list"))
	assert.Contains(t, env.out.String(), short)
	assert.Contains(t, env.out.String(), "Quarterly numbers please")

	require.Equal(t, ExitSuccess, env.run(t, "", "sessions", "show", short))
	assert.Contains(t, env.out.String(), "Here they are.")
	assert.Contains(t, env.out.String(), "> animation: Success")

	path := filepath.Join(t.TempDir(), "chat.json")
	require.Equal(t, ExitSuccess, env.run(t, "", "sessions", "export", conv.ID, "-f", "json", "-o", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var exported model.Conversation
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, conv.ID, exported.ID)
	require.Len(t, exported.Messages, 2)
	assert.Equal(t, augment.Animation{Effect: augment.EffectSuccess}, exported.Messages[1].Augmentation)

	require.Equal(t, ExitSuccess, env.run(t, "", "sessions", "delete", short))
	assert.Equal(t, ExitNotFoundError, env.run(t, "", "sessions", "show", short))
	assert.Contains(t, env.errOut.String(), "not found")
}

func TestExecute_SessionsListJSON(t *testing.T) {
	env := newTestEnv(t, "")
	conv := seedChat(t, env.store(t))

	require.Equal(t, ExitSuccess, env.run(t, "", "sessions", "list", "--json"))
	var resp struct {
		Data []storage.ConversationMeta `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, conv.ID, resp.Data[0].ID)
	assert.Equal(t, 2, resp.Data[0].MessageCount)
}

func TestExecute_SessionsBadFormat(t *testing.T) {
	env := newTestEnv(t, "")
	conv := seedChat(t, env.store(t))

	assert.Equal(t, ExitUsageError, env.run(t, "", "sessions", "export", conv.ID, "-f", "pdf"))
}

// =============================================================================
// LINE-MODE CHAT
// =============================================================================

func TestExecute_PlainChatAgainstScriptedServer(t *testing.T) {
	ts := scriptedServer(t)
	env := newTestEnv(t, ts.URL+"/api/chat")

	input := strings.Join([]string{
		"hello",
		"show me the sales chart",
		"I'm stuck, help",
		"/press",
		"/quit",
	}, "\n")
	require.Equal(t, ExitSuccess, env.run(t, input, "chat", "--plain"))

	out := env.out.String()
	assert.Contains(t, out, "You said: hello")
	assert.Contains(t, out, "Here are the quarterly figures.")
	assert.Contains(t, out, "Q1")
	assert.Contains(t, out, "[Make me a plan]")
	assert.Contains(t, out, "You said: Please make me a step-by-step plan.")

	metas, err := env.store(t).List()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 8, metas[0].MessageCount)
}

func TestExecute_PlainChatEndpointDown(t *testing.T) {
	env := newTestEnv(t, "")

	require.Equal(t, ExitSuccess, env.run(t, "hello\n", "--plain"))
	assert.Contains(t, env.out.String(), "[Error]")

	metas, err := env.store(t).List()
	require.NoError(t, err)
	for _, m := range metas {
		assert.Zero(t, m.MessageCount)
	}
}

func TestExecute_UnknownPersona(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, ExitUsageError, env.run(t, "", "chat", "--plain", "--persona", "nobody"))
}

// =============================================================================
// REPL COMMANDS
// =============================================================================

type stubSender struct{ reply string }

func (s stubSender) Stream(context.Context, chatapi.Request) (*chatapi.Response, error) {
	return chatapi.NewResponse(200, io.NopCloser(strings.NewReader(s.reply)), 8), nil
}

func newTestREPL(t *testing.T, input string) (*REPL, *bytes.Buffer) {
	t.Helper()
	ForceColorsEnabled(false)
	out := &bytes.Buffer{}
	cfg := config.Default()
	r := newREPL(replOptions{
		conv:     model.NewConversation(persona.Builtin()[0]),
		sender:   stubSender{reply: "Sure thing"},
		personas: persona.NewRegistry(persona.Builtin()),
		out:      out,
		width:    80,
		cfg:      cfg,
	})
	r.reader = newScanReader(strings.NewReader(input))
	r.echo = true
	return r, out
}

func TestREPL_Commands(t *testing.T) {
	r, out := newTestREPL(t, "/copy\n/persona coach\n/bogus\n/chats\n/open\nhi\n/copy\n/clear\n")
	var copied string
	r.copyText = func(s string) error {
		copied = s
		return nil
	}

	require.NoError(t, r.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Nothing to copy yet.")
	assert.Contains(t, text, "Now chatting with Coach.")
	assert.Contains(t, text, "unknown command /bogus")
	assert.Contains(t, text, "/chats needs the full screen UI")
	assert.Contains(t, text, "required argument missing")
	assert.Contains(t, text, "Coach: Sure thing")
	assert.Contains(t, text, "Copied last reply.")
	assert.Equal(t, "Sure thing", copied)
	assert.Empty(t, r.ctrl.Snapshot())
}

func TestREPL_HelpListsLineModeCommands(t *testing.T) {
	r, out := newTestREPL(t, "/help\n")
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "/persona <id>")
	assert.Contains(t, out.String(), "/press")
	assert.NotContains(t, out.String(), "/chats")
}

func TestREPL_QuitStopsReading(t *testing.T) {
	r, out := newTestREPL(t, "/quit\nhi\n")
	require.NoError(t, r.Run(context.Background()))

	assert.NotContains(t, out.String(), "Sure thing")
	assert.Empty(t, r.ctrl.Snapshot())
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitGeneralError},
		{"usage", NewUsageError("format", "pdf", "must be md or json"), ExitUsageError},
		{"config validation", errors.Wrap(config.ValidationErrors{{Field: "ui.fps", Message: "bad"}}, "invalid config"), ExitConfigError},
		{"config load", NewCommandError("config", "load", "unreadable", errors.New("eof")), ExitConfigError},
		{"not found", errors.Wrap(storage.ErrConversationNotFound, "load"), ExitNotFoundError},
		{"unauthorized", &chatapi.ClientError{Type: chatapi.ErrTypeUnauthorized}, ExitAuthError},
		{"transport", errors.Wrap(&chatapi.ClientError{Type: chatapi.ErrTypeTransport}, "send"), ExitNetworkError},
		{"api", &chatapi.ClientError{Type: chatapi.ErrTypeAPI}, ExitGeneralError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetExitCode(tc.err))
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, NewCommandError("sessions", "delete", "abc", storage.ErrConversationNotFound), true)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "sessions", out["command"])
	assert.Equal(t, "not_found_error", out["error_type"])
	assert.EqualValues(t, ExitNotFoundError, out["exit_code"])
}

func TestFormatterFor(t *testing.T) {
	assert.Equal(t, "terminal256", formatterFor(termenv.ANSI256))
	assert.Equal(t, "noop", formatterFor(termenv.Ascii))
	var buf bytes.Buffer
	require.NoError(t, writeHighlighted(&buf, `{"a":1}`, "json"))
	assert.Equal(t, `{"a":1}`, buf.String())
}
