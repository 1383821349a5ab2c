// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotRunning    = errors.New("ollama is not running")
	ErrTimeout       = errors.New("ollama request timed out")
	ErrModelNotFound = errors.New("model not found")
)

// maxLine bounds a single stream line.
const maxLine = 1 << 20

// ClientConfig configures a Client. Zero fields take defaults.
type ClientConfig struct {
	BaseURL      string        // default http://127.0.0.1:11434
	Timeout      time.Duration // health checks only; streams follow ctx
	DefaultModel string
}

// Client streams chat replies from an Ollama server. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	model   string
	http    *http.Client
}

// NewClient returns a client for cfg. A nil cfg uses the defaults.
func NewClient(cfg *ClientConfig) *Client {
	c := &Client{
		baseURL: "http://127.0.0.1:11434",
		timeout: 5 * time.Second,
		model:   "qwen2.5:7b",
		http:    &http.Client{},
	}
	if cfg == nil {
		return c
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		c.timeout = cfg.Timeout
	}
	if cfg.DefaultModel != "" {
		c.model = cfg.DefaultModel
	}
	return c
}

// Model returns the model used when a request names none.
func (c *Client) Model() string { return c.model }

// CheckRunning pings the server root.
func (c *Client) CheckRunning(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return errors.Wrap(err, "build health request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ErrTimeout
		}
		return errors.Wrap(ErrNotRunning, err.Error())
	}
	discard(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("ollama health check: %s", resp.Status)
	}
	return nil
}

// ChatStream posts messages and calls fn for each chunk in order. An error
// from fn stops the stream and is returned as is.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, fn func(StreamChunk) error) error {
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(ChatRequest{Model: model, Messages: messages, Stream: true})
	if err != nil {
		return errors.Wrap(err, "encode chat request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build chat request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ErrTimeout
		}
		return errors.Wrap(ErrNotRunning, err.Error())
	}
	defer discard(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrap(ErrModelNotFound, model)
	case resp.StatusCode != http.StatusOK:
		var line chunkLine
		if json.NewDecoder(resp.Body).Decode(&line) == nil && line.Error != "" {
			return errors.Errorf("ollama: %s", line.Error)
		}
		return errors.Errorf("ollama chat: %s", resp.Status)
	}
	return decodeStream(ctx, resp.Body, fn)
}

// decodeStream reads newline-delimited chunks until the final one or EOF.
// Blank and malformed lines are skipped.
func decodeStream(ctx context.Context, r io.Reader, fn func(StreamChunk) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	var model string
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var line chunkLine
		if json.Unmarshal(raw, &line) != nil {
			continue
		}
		if line.Error != "" {
			return errors.Errorf("ollama: %s", line.Error)
		}
		if line.Model != "" {
			model = line.Model
		}
		chunk := StreamChunk{Content: line.Message.Content, Model: model, Done: line.Done}
		if line.Done {
			chunk.DoneReason = line.DoneReason
			chunk.CompletionTokens = line.EvalCount
		}
		if err := fn(chunk); err != nil {
			return err
		}
		if line.Done {
			return nil
		}
	}
	return errors.Wrap(sc.Err(), "read ollama stream")
}

func discard(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}
