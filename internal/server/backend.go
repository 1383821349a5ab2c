// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/chatapi"
	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/ollama"
	"github.com/jeranaias/augchat/internal/stream"
)

// Backend produces the reply body for a chat request. emit writes raw wire
// text (content, then optionally the delimiter and an augmentation) and
// flushes it to the client.
type Backend interface {
	Name() string
	Reply(ctx context.Context, req chatapi.Request, emit func(string) error) error
}

// HealthChecker is implemented by backends with an upstream dependency.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// ============================================================================
// SCRIPTED BACKEND
// ============================================================================

// ScriptedBackend answers from keywords in the input so every augmentation
// kind can be exercised without a model.
type ScriptedBackend struct {
	// Delay is slept between emitted words
	Delay time.Duration
}

// Name implements Backend.
func (b *ScriptedBackend) Name() string { return "scripted" }

// Reply implements Backend.
func (b *ScriptedBackend) Reply(ctx context.Context, req chatapi.Request, emit func(string) error) error {
	content, trailer := Script(req.Input)

	for _, word := range splitKeepSpace(content) {
		if err := emit(word); err != nil {
			return err
		}
		if b.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.Delay):
			}
		}
	}
	if trailer == "" {
		return nil
	}
	return emit(stream.Delimiter + trailer)
}

// Script returns the canned content and augmentation JSON for input. An
// empty trailer means the reply carries no delimiter.
func Script(input string) (content, trailer string) {
	lower := strings.ToLower(input)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	var aug augment.Augmentation
	switch {
	case has("#malformed"):
		return "This reply ends with a broken augmentation.", `{"augmentation":"chart","data":{"type":"Bar"`
	case has("chart", "numbers", "sales", "graph"):
		content = "Here are the quarterly figures."
		aug = augment.Chart{
			Type: augment.ChartBar,
			Data: augment.ChartData{
				Labels: []string{"Q1", "Q2", "Q3", "Q4"},
				Datasets: []augment.Dataset{
					{Label: "Revenue", Data: json.RawMessage(`[12,19,7,15]`)},
					{Label: "Costs", Data: json.RawMessage(`[8,11,6,9]`)},
				},
			},
		}
	case has("finished", "done", "passed", "shipped"):
		content = "Congratulations, that is a real milestone!"
		aug = augment.Animation{Effect: augment.EffectSuccess}
	case has("wow", "amazing", "excited"):
		content = "That is exciting news!"
		aug = augment.Animation{Effect: augment.EffectExcitement}
	case has("should i", "is it", "can i"):
		if has(" not", "never", "skip") {
			content = "No, I would hold off on that."
			aug = augment.Animation{Effect: augment.EffectNo}
		} else {
			content = "Yes, go for it."
			aug = augment.Animation{Effect: augment.EffectYes}
		}
	case has("help", "next", "stuck"):
		content = "Let's break it into smaller steps. Want a plan?"
		aug = augment.ResponseButton{ButtonText: "Make me a plan", ResponseText: "Please make me a step-by-step plan."}
	case has("plain", "nothing"):
		content = "Just text this time."
		aug = augment.None{}
	default:
		content = fmt.Sprintf("You said: %s", strings.TrimSpace(input))
		return content, ""
	}

	raw, err := augment.Marshal(aug)
	if err != nil {
		return content, ""
	}
	return content, string(raw)
}

// splitKeepSpace splits s into words, each carrying its trailing spaces, so
// joining the parts restores s exactly.
func splitKeepSpace(s string) []string {
	var parts []string
	start := 0
	inSpace := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			parts = append(parts, s[start:i])
			start = i
			inSpace = false
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

// ============================================================================
// OLLAMA BACKEND
// ============================================================================

// OllamaBackend relays model tokens from a local Ollama. The persona prompt
// asks the model to append the delimiter and augmentation itself.
type OllamaBackend struct {
	Client *ollama.Client
	Model  string
}

// Name implements Backend.
func (b *OllamaBackend) Name() string { return "ollama" }

// Check implements HealthChecker.
func (b *OllamaBackend) Check(ctx context.Context) error {
	return b.Client.CheckRunning(ctx)
}

// Reply implements Backend.
func (b *OllamaBackend) Reply(ctx context.Context, req chatapi.Request, emit func(string) error) error {
	err := b.Client.ChatStream(ctx, b.Model, toOllama(req), func(chunk ollama.StreamChunk) error {
		if chunk.Content == "" {
			return nil
		}
		return emit(chunk.Content)
	})
	return errors.Wrap(err, "ollama stream")
}

// toOllama flattens a request into model messages. Augmentations are
// re-attached to assistant turns so the model sees the format it is asked
// to produce.
func toOllama(req chatapi.Request) []ollama.Message {
	msgs := make([]ollama.Message, 0, len(req.Messages)+2)
	if req.Prompt != "" {
		msgs = append(msgs, ollama.Message{Role: string(model.RoleSystem), Content: req.Prompt})
	}
	for _, m := range req.Messages {
		content := m.Content
		if m.Role == model.RoleAssistant && m.HasAugmentation() {
			if raw, err := augment.Marshal(m.Augmentation); err == nil {
				content += stream.Delimiter + string(raw)
			}
		}
		msgs = append(msgs, ollama.Message{Role: string(m.Role), Content: content})
	}
	return append(msgs, ollama.Message{Role: string(model.RoleUser), Content: req.Input})
}
