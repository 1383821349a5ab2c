// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi is the HTTP client for the chat endpoint.
//
// A request is a JSON POST of the persona prompt, the prior history and the
// new input. A successful response is a streamed text body that the caller
// decodes with package stream. Any other status is returned as a
// *ClientError; an unauthorized response carries the login location to
// redirect to.
//
// Example:
//
//	client := chatapi.NewClient(chatapi.Config{Endpoint: url})
//	resp, err := client.Stream(ctx, chatapi.Request{Messages: history, Input: "hi"})
//	if ce, ok := chatapi.AsClientError(err); ok && ce.Type == chatapi.ErrTypeUnauthorized {
//	    open(chatapi.LoginURL(ce.Redirect, here))
//	}
//	defer resp.Close()
//	res := stream.Decode(ctx, resp.Chunks(), render)
package chatapi
