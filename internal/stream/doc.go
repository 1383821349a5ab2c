// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes a chat response body of the form
//
//	<free-text content>O^%^£O<augmentation JSON>
//
// into its two segments while it is still arriving.
//
// The delimiter may be split across reads, and so may the multi-byte '£'
// inside it, so the Decoder keeps every decoded byte in one buffer and
// searches that buffer rather than the latest chunk. Once the delimiter is
// located the content segment is frozen and later bytes belong to the
// augmentation. A stream without the delimiter is all content.
//
// # Usage
//
//	res := stream.Decode(ctx, stream.NewBodyReader(resp.Body, 0), func(u stream.Update) {
//	    render(u.Content)
//	})
//	aug, ok := validator.Validate(res.Augmentation)
package stream
