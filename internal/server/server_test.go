// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/chatapi"
	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/ollama"
	"github.com/jeranaias/augchat/internal/stream"
)

func newTestServer(t *testing.T, cfg Config, backend Backend) *httptest.Server {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	ts := httptest.NewServer(New(cfg, backend).Handler())
	t.Cleanup(ts.Close)
	return ts
}

// chat runs a full client round trip through the decoder.
func chat(t *testing.T, ts *httptest.Server, token, input string) (stream.Result, error) {
	t.Helper()
	c := chatapi.NewClient(chatapi.Config{Endpoint: ts.URL + "/api/chat", Token: token, ChunkSize: 7})
	resp, err := c.Stream(context.Background(), chatapi.Request{Input: input})
	if err != nil {
		return stream.Result{}, err
	}
	defer resp.Close()
	return stream.Decode(context.Background(), resp.Chunks(), nil), nil
}

// =============================================================================
// CHAT ENDPOINT TESTS
// =============================================================================

func TestChat_ScriptedAugmentations(t *testing.T) {
	ts := newTestServer(t, Config{}, &ScriptedBackend{})
	v := augment.NewValidator(zerolog.Nop())

	tests := []struct {
		input string
		want  augment.Kind
	}{
		{"show me the sales numbers", augment.KindChart},
		{"I finished the marathon", augment.KindAnimation},
		{"I'm stuck, help", augment.KindResponseButton},
		{"plain text please", augment.KindNone},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := chat(t, ts, "", tt.input)
			require.NoError(t, err)
			require.True(t, res.DelimiterFound)
			assert.NotEmpty(t, res.Content)
			assert.NotContains(t, res.Content, stream.Delimiter)

			aug, ok := v.Validate(res.Augmentation)
			require.True(t, ok, "augmentation %q did not validate", res.Augmentation)
			assert.Equal(t, tt.want, aug.Kind())
		})
	}
}

func TestChat_NoAugmentation(t *testing.T) {
	ts := newTestServer(t, Config{}, &ScriptedBackend{})

	res, err := chat(t, ts, "", "hello there")
	require.NoError(t, err)
	assert.False(t, res.DelimiterFound)
	assert.Equal(t, "You said: hello there", res.Content)
}

func TestChat_MalformedTrailer(t *testing.T) {
	ts := newTestServer(t, Config{}, &ScriptedBackend{})

	res, err := chat(t, ts, "", "#malformed")
	require.NoError(t, err)
	require.True(t, res.DelimiterFound)
	_, ok := augment.NewValidator(zerolog.Nop()).Validate(res.Augmentation)
	assert.False(t, ok)
}

func TestChat_Auth(t *testing.T) {
	ts := newTestServer(t, Config{Token: "s3cret", LoginRedirect: "https://id.example.com/login"}, &ScriptedBackend{})

	_, err := chat(t, ts, "wrong", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, chatapi.ErrUnauthorized)
	ce, ok := chatapi.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, "https://id.example.com/login", ce.Redirect)

	res, err := chat(t, ts, "s3cret", "hi")
	require.NoError(t, err)
	assert.Equal(t, "You said: hi", res.Content)
}

func TestChat_RateLimit(t *testing.T) {
	ts := newTestServer(t, Config{RateLimit: 0.001, Burst: 1}, &ScriptedBackend{})

	_, err := chat(t, ts, "", "one")
	require.NoError(t, err)
	_, err = chat(t, ts, "", "two")
	assert.ErrorIs(t, err, chatapi.ErrRateLimited)
}

func TestChat_BadRequests(t *testing.T) {
	ts := newTestServer(t, Config{}, &ScriptedBackend{})

	tests := map[string]string{
		"not json":    `{`,
		"empty input": `{"messages":[],"input":"  "}`,
		"bad role":    `{"messages":[{"role":"robot","content":"x"}],"input":"hi"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var eb chatapi.ErrorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&eb))
			assert.NotEmpty(t, eb.Error)
		})
	}
}

type failingBackend struct{ afterFirst bool }

func (failingBackend) Name() string { return "failing" }

func (b failingBackend) Reply(ctx context.Context, req chatapi.Request, emit func(string) error) error {
	if b.afterFirst {
		if err := emit("partial "); err != nil {
			return err
		}
	}
	return errors.New("model exploded")
}

func TestChat_BackendFailure(t *testing.T) {
	ts := newTestServer(t, Config{}, failingBackend{})
	_, err := chat(t, ts, "", "hi")
	require.Error(t, err)
	ce, ok := chatapi.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, ce.Status)

	// After the first byte the stream is simply cut short
	ts = newTestServer(t, Config{}, failingBackend{afterFirst: true})
	res, err := chat(t, ts, "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "partial ", res.Content)
}

type panicBackend struct{}

func (panicBackend) Name() string { return "panic" }
func (panicBackend) Reply(context.Context, chatapi.Request, func(string) error) error {
	panic("boom")
}

func TestRecoveryMiddleware(t *testing.T) {
	ts := newTestServer(t, Config{}, panicBackend{})
	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(`{"input":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

// =============================================================================
// OTHER ENDPOINTS
// =============================================================================

func TestSchemaAndHealth(t *testing.T) {
	ts := newTestServer(t, Config{Token: "x"}, &ScriptedBackend{})

	resp, err := http.Get(ts.URL + "/api/schema")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "oneOf")

	resp, err = http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	var h HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	resp.Body.Close()
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "scripted", h.Backend)

	resp, err = http.Get(ts.URL + "/login?callbackUrl=" + "https%3A%2F%2Fapp%2Fc%2F1")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Return to: https://app/c/1")
}

// =============================================================================
// BACKEND TESTS
// =============================================================================

func TestSplitKeepSpace(t *testing.T) {
	for _, s := range []string{"", "one", "a b  c ", "  lead", "héllo wörld £"} {
		assert.Equal(t, s, strings.Join(splitKeepSpace(s), ""), "input %q", s)
	}
	assert.Equal(t, []string{"a ", "b  ", "c"}, splitKeepSpace("a b  c"))
}

func TestScript_AnimationEffects(t *testing.T) {
	_, trailer := Script("Should I skip it? never mind")
	aug, err := augment.Parse(trailer)
	require.NoError(t, err)
	assert.Equal(t, augment.Animation{Effect: augment.EffectNo}, aug)

	_, trailer = Script("should I go?")
	aug, err = augment.Parse(trailer)
	require.NoError(t, err)
	assert.Equal(t, augment.Animation{Effect: augment.EffectYes}, aug)
}

func TestScriptedBackend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &ScriptedBackend{Delay: time.Second}
	err := b.Reply(ctx, chatapi.Request{Input: "hello world"}, func(string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOllamaBackend(t *testing.T) {
	var got ollama.ChatRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprintln(w, `{"message":{"content":"Nice "}}`)
		fmt.Fprintln(w, `{"message":{"content":"work`+stream.Delimiter+`{\"augmentation\":\"animation\",\"data\":\"Success\"}"},"done":true}`)
	}))
	defer upstream.Close()

	backend := &OllamaBackend{Client: ollama.NewClient(&ollama.ClientConfig{BaseURL: upstream.URL}), Model: "tiny"}
	ts := newTestServer(t, Config{}, backend)

	c := chatapi.NewClient(chatapi.Config{Endpoint: ts.URL + "/api/chat"})
	resp, err := c.Stream(context.Background(), chatapi.Request{
		Prompt: "Be kind.",
		Messages: []model.Message{
			model.NewUserMessage("I ran"),
			model.NewAssistantMessage("Great", augment.Animation{Effect: augment.EffectExcitement}),
		},
		Input: "I ran again",
	})
	require.NoError(t, err)
	res := stream.Decode(context.Background(), resp.Chunks(), nil)
	resp.Close()

	assert.Equal(t, "Nice work", res.Content)
	assert.JSONEq(t, `{"augmentation":"animation","data":"Success"}`, res.Augmentation)

	require.Len(t, got.Messages, 4)
	assert.Equal(t, "tiny", got.Model)
	assert.Equal(t, ollama.Message{Role: "system", Content: "Be kind."}, got.Messages[0])
	assert.Contains(t, got.Messages[2].Content, stream.Delimiter)
	assert.Equal(t, ollama.Message{Role: "user", Content: "I ran again"}, got.Messages[3])

	require.NoError(t, backend.Check(context.Background()))
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestValidateBearerToken(t *testing.T) {
	assert.True(t, ValidateBearerToken("abc", "abc"))
	assert.False(t, ValidateBearerToken("abd", "abc"))
	assert.False(t, ValidateBearerToken("", ""))
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	r.Header.Set("X-Forwarded-For", "10.1.1.1")
	assert.Equal(t, "203.0.113.9", GetClientIP(r), "forwarded header from untrusted peer is ignored")

	r.RemoteAddr = "127.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	assert.Equal(t, "198.51.100.4", GetClientIP(r))
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestServe_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Config{Logger: zerolog.Nop()}, &ScriptedBackend{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Post("http://"+ln.Addr().String()+"/api/chat", "application/json",
			bytes.NewReader([]byte(`{"input":"ping"}`)))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
