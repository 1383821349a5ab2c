// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Delimiter separates the free-text content from the augmentation JSON.
const Delimiter = "O^%^£O"

// =============================================================================
// UPDATE / RESULT
// =============================================================================

// Update is the decoder state after one chunk. Each update supersedes the
// previous one.
type Update struct {
	// Content is the whole buffer while the delimiter is unseen, and the
	// text before the delimiter afterwards.
	Content string

	// Augmentation is everything after the delimiter. Empty until found.
	Augmentation string

	// DelimiterFound is set once the delimiter has been located.
	DelimiterFound bool

	// Transitioned is true only on the update that located the delimiter.
	Transitioned bool
}

// Result is the final state of a decoded stream.
type Result struct {
	Content        string
	Augmentation   string
	DelimiterFound bool

	// Interrupted is true when the stream ended on a read error or a
	// cancelled context rather than a final chunk.
	Interrupted bool
	Err         error

	Chunks int
	Bytes  int
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder splits one response body into content and augmentation. It keeps a
// single growing text buffer so a delimiter split across chunks is still
// found. A Decoder serves exactly one request/response cycle and is not safe
// for concurrent use.
type Decoder struct {
	utf8    *encoding.Decoder
	pending []byte // bytes of an incomplete rune carried to the next chunk
	scratch []byte

	buf      strings.Builder
	searched int // buffer prefix already known not to start a delimiter
	found    bool
	index    int

	chunks int
	bytes  int
}

// NewDecoder returns a decoder for a UTF-8 text stream.
func NewDecoder() *Decoder {
	dec := unicode.UTF8.NewDecoder()
	dec.Reset()
	return &Decoder{utf8: dec}
}

// Write decodes chunk, appends it to the buffer and returns the new state.
func (d *Decoder) Write(chunk []byte) Update {
	d.chunks++
	d.bytes += len(chunk)
	d.buf.WriteString(d.decode(chunk, false))
	return d.update()
}

// Flush decodes any bytes held back at the end of the stream. Incomplete
// sequences become U+FFFD. It reports false when nothing was pending.
func (d *Decoder) Flush() (Update, bool) {
	if len(d.pending) == 0 {
		return d.update(), false
	}
	d.buf.WriteString(d.decode(nil, true))
	return d.update(), true
}

// Result returns the current split as a final result.
func (d *Decoder) Result() Result {
	u := d.snapshot()
	return Result{
		Content:        u.Content,
		Augmentation:   u.Augmentation,
		DelimiterFound: u.DelimiterFound,
		Chunks:         d.chunks,
		Bytes:          d.bytes,
	}
}

// Found reports whether the delimiter has been located.
func (d *Decoder) Found() bool {
	return d.found
}

func (d *Decoder) update() Update {
	transitioned := false
	if !d.found {
		text := d.buf.String()
		// Positions before searched were already checked with the full
		// delimiter length available, so only the tail can match.
		if i := strings.Index(text[d.searched:], Delimiter); i >= 0 {
			d.found = true
			d.index = d.searched + i
			transitioned = true
		} else if n := len(text) - len(Delimiter) + 1; n > d.searched {
			d.searched = n
		}
	}
	u := d.snapshot()
	u.Transitioned = transitioned
	return u
}

func (d *Decoder) snapshot() Update {
	text := d.buf.String()
	if !d.found {
		return Update{Content: text}
	}
	return Update{
		Content:        text[:d.index],
		Augmentation:   text[d.index+len(Delimiter):],
		DelimiterFound: true,
	}
}

// decode runs chunk through the UTF-8 transformer, holding back a trailing
// partial rune unless atEOF.
func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	src := make([]byte, 0, len(d.pending)+len(chunk))
	src = append(src, d.pending...)
	src = append(src, chunk...)
	d.pending = d.pending[:0]

	// Each invalid byte may expand to a 3-byte replacement rune.
	if need := 3*len(src) + utf8.UTFMax; cap(d.scratch) < need {
		d.scratch = make([]byte, need)
	}
	dst := d.scratch[:cap(d.scratch)]

	var out strings.Builder
	for len(src) > 0 {
		nDst, nSrc, err := d.utf8.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]
		if err == transform.ErrShortSrc {
			d.pending = append(d.pending, src...)
			break
		}
		if err != nil && err != transform.ErrShortDst {
			// The UTF-8 decoder replaces bad input rather than failing.
			// Anything else drops the remainder as one replacement rune.
			out.WriteRune(utf8.RuneError)
			break
		}
		if nSrc == 0 && nDst == 0 {
			break
		}
	}
	return out.String()
}
