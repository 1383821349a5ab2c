// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/augchat/internal/model"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the chat endpoint client.
type Config struct {
	// Endpoint is the full URL of the chat endpoint (default: http://127.0.0.1:8787/api/chat)
	Endpoint string

	// Token is sent as a bearer token when set.
	Token string

	// HeaderTimeout bounds the wait for response headers. The body is
	// streamed without a deadline.
	HeaderTimeout time.Duration

	// RateLimit is the maximum requests per second; 0 disables limiting.
	RateLimit float64
	Burst     int

	// ChunkSize is the body read size (default: stream.DefaultChunkSize).
	ChunkSize int
}

// DefaultEndpoint is used when Config.Endpoint is empty.
const DefaultEndpoint = "http://127.0.0.1:8787/api/chat"

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint:      DefaultEndpoint,
		HeaderTimeout: 30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client posts chat requests and returns the streamed reply.
// The Client is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client. Zero config fields take defaults.
func NewClient(config Config, opts ...Option) *Client {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.HeaderTimeout == 0 {
		config.HeaderTimeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = config.HeaderTimeout

	c := &Client{
		config:     config,
		httpClient: &http.Client{Transport: transport},
		log:        zerolog.Nop(),
	}
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// Stream sends req and returns the response once headers arrive. On a
// non-success status the error body is decoded into a *ClientError.
func (c *Client) Stream(ctx context.Context, req Request) (*Response, error) {
	if req.Messages == nil {
		req.Messages = []model.Message{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to encode request", Cause: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ClientError{Type: ErrTypeRateLimited, Message: "rate limit wait aborted", Cause: err}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/plain")
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "request failed", Cause: errors.WithStack(err)}
	}
	c.log.Debug().
		Str("endpoint", c.config.Endpoint).
		Int("status", resp.StatusCode).
		Dur("ttfb", time.Since(start)).
		Int("history", len(req.Messages)).
		Msg("chat request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return NewResponse(resp.StatusCode, resp.Body, c.config.ChunkSize), nil
	}
	defer resp.Body.Close()
	return nil, decodeError(resp)
}

// decodeError builds a ClientError from a non-success response.
func decodeError(resp *http.Response) error {
	ce := &ClientError{Type: ErrTypeAPI, Status: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		ce.Type = ErrTypeUnauthorized
	case http.StatusTooManyRequests:
		ce.Type = ErrTypeRateLimited
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		ce.Message = http.StatusText(resp.StatusCode)
		ce.Cause = err
		return ce
	}
	var eb ErrorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		ce.Message = eb.Error
		ce.Redirect = eb.Redirect
	} else if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 512 {
		ce.Message = text
	} else {
		ce.Message = http.StatusText(resp.StatusCode)
	}
	return ce
}
