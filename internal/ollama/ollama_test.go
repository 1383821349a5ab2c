// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ndjson(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestChatStream(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, ndjson(
			`{"model":"m1","message":{"role":"assistant","content":"Hel"},"done":false}`,
			``,
			`not json`,
			`{"model":"m1","message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"model":"m1","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","eval_count":7}`,
		))
	}))
	defer srv.Close()

	c := NewClient(&ClientConfig{BaseURL: srv.URL + "/", DefaultModel: "m1"})
	var parts []string
	var last StreamChunk
	err := c.ChatStream(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, func(ch StreamChunk) error {
		parts = append(parts, ch.Content)
		last = ch
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "m1", got.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, "Hello", strings.Join(parts, ""))
	assert.True(t, last.Done)
	assert.Equal(t, 7, last.CompletionTokens)
	assert.Equal(t, "stop", last.DoneReason)
}

func TestChatStream_CallbackErrorStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ndjson(
			`{"message":{"content":"a"}}`,
			`{"message":{"content":"b"}}`,
		))
	}))
	defer srv.Close()

	stop := errors.New("stop")
	calls := 0
	err := NewClient(&ClientConfig{BaseURL: srv.URL}).ChatStream(context.Background(), "m", nil, func(StreamChunk) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestChatStream_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		want    error
	}{
		{name: "not found", status: http.StatusNotFound, want: ErrModelNotFound},
		{name: "api error", status: http.StatusInternalServerError, body: `{"error":"out of memory"}`, wantMsg: "out of memory"},
		{name: "in-stream error", status: http.StatusOK, body: `{"error":"model crashed"}` + "\n", wantMsg: "model crashed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			err := NewClient(&ClientConfig{BaseURL: srv.URL}).ChatStream(context.Background(), "m", nil,
				func(StreamChunk) error { return nil })
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	}))
	c := NewClient(&ClientConfig{BaseURL: srv.URL})
	assert.NoError(t, c.CheckRunning(context.Background()))

	srv.Close()
	assert.ErrorIs(t, c.CheckRunning(context.Background()), ErrNotRunning)
}

func TestDecodeStream_EndsAtDone(t *testing.T) {
	var got []string
	err := decodeStream(context.Background(), strings.NewReader(ndjson(
		`{"message":{"content":"foo"}}`,
		`{"message":{"content":"bar"},"done":true}`,
		`{"message":{"content":"ignored"}}`,
	)), func(c StreamChunk) error {
		got = append(got, c.Content)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar"}, got)
}

func TestDecodeStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := decodeStream(ctx, strings.NewReader(ndjson(`{"message":{"content":"a"}}`)), func(StreamChunk) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
