// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"io"
)

// DefaultChunkSize is the read size used by NewBodyReader when size <= 0.
const DefaultChunkSize = 4096

// ChunkReader yields the chunks of one response body. final is true on the
// last chunk, which may be empty. The returned slice is only valid until the
// next call.
type ChunkReader interface {
	ReadChunk() (chunk []byte, final bool, err error)
}

// ChunkReaderFunc adapts a function to ChunkReader.
type ChunkReaderFunc func() ([]byte, bool, error)

// ReadChunk calls f.
func (f ChunkReaderFunc) ReadChunk() ([]byte, bool, error) {
	return f()
}

// BodyReader reads an io.Reader in fixed-size chunks.
type BodyReader struct {
	r   io.Reader
	buf []byte
}

// NewBodyReader returns a ChunkReader over r.
func NewBodyReader(r io.Reader, size int) *BodyReader {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &BodyReader{r: r, buf: make([]byte, size)}
}

// ReadChunk reads at most one buffer's worth. io.EOF is reported as final.
func (b *BodyReader) ReadChunk() ([]byte, bool, error) {
	n, err := b.r.Read(b.buf)
	if err == io.EOF {
		return b.buf[:n], true, nil
	}
	return b.buf[:n], false, err
}

// Decode runs the read loop until a final chunk, a read error or ctx is
// done. onUpdate, if non-nil, receives every intermediate state in order on
// the calling goroutine. Read errors are not returned: whatever was decoded
// so far is the result, with Interrupted set.
func Decode(ctx context.Context, r ChunkReader, onUpdate func(Update)) Result {
	d := NewDecoder()
	var (
		interrupted bool
		readErr     error
	)

	for {
		if err := ctx.Err(); err != nil {
			interrupted, readErr = true, err
			break
		}

		chunk, final, err := r.ReadChunk()
		if len(chunk) > 0 {
			u := d.Write(chunk)
			if onUpdate != nil {
				onUpdate(u)
			}
		}
		if err != nil {
			interrupted, readErr = true, err
			break
		}
		if final {
			break
		}
	}

	if u, flushed := d.Flush(); flushed && onUpdate != nil {
		onUpdate(u)
	}

	res := d.Result()
	res.Interrupted = interrupted
	res.Err = readErr
	return res
}
