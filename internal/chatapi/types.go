// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"io"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/stream"
)

// MaxHistory is the most history messages a Request carries. Older turns
// stay in the conversation but are not sent.
const MaxHistory = 1000

// Request is the JSON body POSTed to the chat endpoint. Messages is the
// history before Input; Input is the new user text.
type Request struct {
	Prompt   string          `json:"prompt,omitempty"`
	Messages []model.Message `json:"messages"`
	Input    string          `json:"input"`
}

// ErrorBody is the JSON body of a non-success response.
type ErrorBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// Response is a successful streaming response. The caller must Close it.
type Response struct {
	Status int
	Body   io.ReadCloser

	chunkSize int
}

// NewResponse wraps a response body.
func NewResponse(status int, body io.ReadCloser, chunkSize int) *Response {
	return &Response{Status: status, Body: body, chunkSize: chunkSize}
}

// Chunks returns a reader over the body in fixed-size chunks.
func (r *Response) Chunks() stream.ChunkReader {
	return stream.NewBodyReader(r.Body, r.chunkSize)
}

// Close releases the body.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
