// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// chunks returns a ChunkReader that yields parts in order and marks the last
// one final.
func chunks(parts ...[]byte) ChunkReader {
	i := 0
	return ChunkReaderFunc(func() ([]byte, bool, error) {
		if i >= len(parts) {
			return nil, true, nil
		}
		p := parts[i]
		i++
		return p, i == len(parts), nil
	})
}

func splitAt(text string, cuts ...int) [][]byte {
	b := []byte(text)
	var out [][]byte
	prev := 0
	for _, c := range cuts {
		out = append(out, b[prev:c])
		prev = c
	}
	return append(out, b[prev:])
}

type pair struct {
	Content, Augmentation string
	Found                 bool
}

func decodeAll(t *testing.T, parts [][]byte) pair {
	t.Helper()
	res := Decode(context.Background(), chunks(parts...), nil)
	require.False(t, res.Interrupted)
	return pair{res.Content, res.Augmentation, res.DelimiterFound}
}

const augmented = `Great job! ¡Olé!O^%^£O{"augmentation":"animation","data":"Success"}`

func TestDecode_SingleChunk(t *testing.T) {
	got := decodeAll(t, [][]byte{[]byte(augmented)})
	want := pair{"Great job! ¡Olé!", `{"augmentation":"animation","data":"Success"}`, true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_EveryTwoWaySplitMatchesSingleChunk(t *testing.T) {
	want := decodeAll(t, [][]byte{[]byte(augmented)})
	for cut := 0; cut <= len(augmented); cut++ {
		got := decodeAll(t, splitAt(augmented, cut))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("cut=%d mismatch (-want +got):\n%s", cut, diff)
		}
	}
}

func TestDecode_EveryThreeWaySplitAroundDelimiter(t *testing.T) {
	want := decodeAll(t, [][]byte{[]byte(augmented)})
	start := strings.Index(augmented, Delimiter)
	end := start + len(Delimiter)
	for a := start - 2; a <= end+1; a++ {
		for b := a; b <= end+2; b++ {
			got := decodeAll(t, splitAt(augmented, a, b))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("cuts=(%d,%d) mismatch (-want +got):\n%s", a, b, diff)
			}
		}
	}
}

func TestDecode_SplitInsidePoundSign(t *testing.T) {
	pound := strings.Index(augmented, "£")
	parts := splitAt(augmented, pound+1) // between 0xC2 and 0xA3

	var updates []Update
	res := Decode(context.Background(), chunks(parts...), func(u Update) {
		updates = append(updates, u)
	})

	require.Len(t, updates, 2)
	assert.False(t, updates[0].DelimiterFound)
	assert.NotContains(t, updates[0].Content, "�", "partial rune must be held back")
	assert.True(t, updates[1].Transitioned)
	assert.Equal(t, "Great job! ¡Olé!", res.Content)
}

func TestDecode_RandomSplits(t *testing.T) {
	want := decodeAll(t, [][]byte{[]byte(augmented)})
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		var parts [][]byte
		b := []byte(augmented)
		for len(b) > 0 {
			n := rng.Intn(5) + 1
			if n > len(b) {
				n = len(b)
			}
			parts = append(parts, b[:n])
			b = b[n:]
		}
		got := decodeAll(t, parts)
		require.Equal(t, want, got, "iteration %d", i)
	}
}

func TestDecode_NoDelimiter(t *testing.T) {
	var contents []string
	res := Decode(context.Background(), chunks([]byte("Hello"), []byte(" "), []byte("there")), func(u Update) {
		assert.False(t, u.DelimiterFound)
		assert.Empty(t, u.Augmentation)
		contents = append(contents, u.Content)
	})

	assert.Equal(t, []string{"Hello", "Hello ", "Hello there"}, contents)
	assert.Equal(t, "Hello there", res.Content)
	assert.Empty(t, res.Augmentation)
	assert.False(t, res.DelimiterFound)
	assert.Equal(t, 3, res.Chunks)
}

func TestDecode_ContentFrozenAfterDelimiter(t *testing.T) {
	var updates []Update
	Decode(context.Background(), chunks(
		[]byte("Pick one:"),
		[]byte("O^%^£O{\"augmentation\""),
		[]byte(":\"none\"}"),
	), func(u Update) {
		updates = append(updates, u)
	})

	require.Len(t, updates, 3)
	assert.False(t, updates[0].DelimiterFound)
	assert.True(t, updates[1].Transitioned)
	assert.Equal(t, `{"augmentation"`, updates[1].Augmentation)
	assert.False(t, updates[2].Transitioned)
	assert.Equal(t, "Pick one:", updates[2].Content)
	assert.Equal(t, `{"augmentation":"none"}`, updates[2].Augmentation)
}

func TestDecode_SecondDelimiterBelongsToAugmentation(t *testing.T) {
	got := decodeAll(t, [][]byte{[]byte("aO^%^£ObO^%^£Oc")})
	assert.Equal(t, pair{"a", "bO^%^£Oc", true}, got)
}

func TestDecode_ReadErrorEndsStreamWithPartialData(t *testing.T) {
	boom := errors.New("connection reset")
	calls := 0
	r := ChunkReaderFunc(func() ([]byte, bool, error) {
		calls++
		switch calls {
		case 1:
			return []byte("partial"), false, nil
		case 2:
			return []byte(" text"), false, boom
		}
		t.Fatal("read after error")
		return nil, false, nil
	})

	res := Decode(context.Background(), r, nil)
	assert.True(t, res.Interrupted)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, "partial text", res.Content)
	assert.False(t, res.DelimiterFound)
}

func TestDecode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := ChunkReaderFunc(func() ([]byte, bool, error) {
		cancel()
		return []byte("abc"), false, nil
	})

	res := Decode(ctx, r, nil)
	assert.True(t, res.Interrupted)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, "abc", res.Content)
}

func TestDecode_TruncatedRuneFlushedAtEOF(t *testing.T) {
	var last Update
	res := Decode(context.Background(), chunks([]byte("ok"), []byte{0xC2}), func(u Update) {
		last = u
	})
	assert.Equal(t, "ok�", res.Content)
	assert.Equal(t, res.Content, last.Content)
}

func TestBodyReader_ReportsEOFAsFinal(t *testing.T) {
	r := NewBodyReader(strings.NewReader(augmented), 3)
	res := Decode(context.Background(), r, nil)
	assert.False(t, res.Interrupted)
	assert.Equal(t, "Great job! ¡Olé!", res.Content)
	assert.Equal(t, len(augmented), res.Bytes)
}
