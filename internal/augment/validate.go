// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package augment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// =============================================================================
// ERRORS
// =============================================================================

// SyntaxError is returned when the augmentation text is not valid JSON.
type SyntaxError struct {
	Offset int64
	Cause  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("augment: malformed JSON at offset %d: %v", e.Offset, e.Cause)
}

func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// VariantFailure records why one alternative rejected the payload.
type VariantFailure struct {
	Kind   Kind
	Reason string
}

// ValidationError is returned when the payload parses but matches none of
// the alternatives. Failures has one entry per alternative, in order.
type ValidationError struct {
	Failures []VariantFailure
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Kind, f.Reason))
	}
	return "augment: no alternative matched (" + strings.Join(parts, "; ") + ")"
}

// =============================================================================
// PARSE
// =============================================================================

// Parse decodes raw and checks it against each alternative in order,
// returning the first that matches. Unknown object fields are ignored.
func Parse(raw string) (Augmentation, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if !json.Valid(trimmed) {
		var v any
		err := json.Unmarshal(trimmed, &v)
		se := &SyntaxError{Cause: err}
		var jsonErr *json.SyntaxError
		if errors.As(err, &jsonErr) {
			se.Offset = jsonErr.Offset
		}
		if err == nil {
			se.Cause = errors.New("invalid JSON")
		}
		return nil, se
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, &ValidationError{Failures: failAll("payload is not an object")}
	}

	tagRaw, hasTag := obj["augmentation"]
	var tag string
	if hasTag {
		if err := json.Unmarshal(tagRaw, &tag); err != nil {
			hasTag = false
		}
	}
	data, hasData := obj["data"]
	if hasData && bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		hasData = false
	}

	verr := &ValidationError{}
	for _, kind := range Kinds {
		if !hasTag {
			verr.Failures = append(verr.Failures, VariantFailure{Kind: kind, Reason: `missing string "augmentation" tag`})
			continue
		}
		if Kind(tag) != kind {
			verr.Failures = append(verr.Failures, VariantFailure{Kind: kind, Reason: fmt.Sprintf("tag %q does not match", tag)})
			continue
		}
		a, reason := decodeVariant(kind, data, hasData)
		if reason == "" {
			return a, nil
		}
		verr.Failures = append(verr.Failures, VariantFailure{Kind: kind, Reason: reason})
	}
	return nil, verr
}

func failAll(reason string) []VariantFailure {
	out := make([]VariantFailure, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, VariantFailure{Kind: k, Reason: reason})
	}
	return out
}

// decodeVariant returns the decoded alternative or a non-empty rejection reason.
func decodeVariant(kind Kind, data json.RawMessage, hasData bool) (Augmentation, string) {
	switch kind {
	case KindResponseButton:
		if !hasData {
			return nil, "data is required"
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, "data must be an object"
		}
		var rb ResponseButton
		if reason := requireString(fields, "buttonText", &rb.ButtonText); reason != "" {
			return nil, reason
		}
		if reason := requireString(fields, "responseText", &rb.ResponseText); reason != "" {
			return nil, reason
		}
		return rb, ""

	case KindAnimation:
		if !hasData {
			return nil, "data is required"
		}
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, "data must be a string"
		}
		if !Effect(s).Valid() {
			return nil, fmt.Sprintf("data %q is not one of %v", s, Effects)
		}
		return Animation{Effect: Effect(s)}, ""

	case KindChart:
		return decodeChart(data, hasData)

	case KindNone:
		return None{}, ""
	}
	return nil, "unknown alternative"
}

func requireString(fields map[string]json.RawMessage, name string, dst *string) string {
	raw, ok := fields[name]
	if !ok {
		return fmt.Sprintf("data.%s is required", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Sprintf("data.%s must be a string", name)
	}
	return ""
}

func decodeChart(data json.RawMessage, hasData bool) (Augmentation, string) {
	if !hasData {
		return nil, "data is required"
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, "data must be an object"
	}

	var c Chart
	var typ string
	if reason := requireString(fields, "type", &typ); reason != "" {
		return nil, reason
	}
	c.Type = ChartType(typ)
	if !c.Type.Valid() {
		return nil, fmt.Sprintf("data.type %q is not one of %v", typ, ChartTypes)
	}

	inner, ok := fields["data"]
	if !ok {
		return nil, "data.data is required"
	}
	var innerFields map[string]json.RawMessage
	if err := json.Unmarshal(inner, &innerFields); err != nil || innerFields == nil {
		return nil, "data.data must be an object"
	}
	if labels, ok := innerFields["labels"]; ok {
		if err := json.Unmarshal(labels, &c.Data.Labels); err != nil {
			return nil, "data.data.labels must be a list of strings"
		}
	}
	if sets, ok := innerFields["datasets"]; ok {
		var rawSets []map[string]json.RawMessage
		if err := json.Unmarshal(sets, &rawSets); err != nil {
			return nil, "data.data.datasets must be a list of objects"
		}
		for i, rs := range rawSets {
			var ds Dataset
			if l, ok := rs["label"]; ok {
				if err := json.Unmarshal(l, &ds.Label); err != nil {
					return nil, fmt.Sprintf("data.data.datasets[%d].label must be a string", i)
				}
			}
			ds.Data = rs["data"]
			ds.Fill = rs["fill"]
			c.Data.Datasets = append(c.Data.Datasets, ds)
		}
	}
	if opts, ok := fields["options"]; ok && !bytes.Equal(bytes.TrimSpace(opts), []byte("null")) {
		c.Options = opts
	}
	return c, ""
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator wraps Parse with diagnostic logging. It never returns an error:
// a rejected payload degrades to "no augmentation".
type Validator struct {
	log zerolog.Logger
}

// NewValidator returns a validator that logs rejections to logger.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{log: logger.With().Str("component", "augment").Logger()}
}

// Validate returns the typed augmentation and true, or nil and false when raw
// is malformed or matches no alternative.
func (v *Validator) Validate(raw string) (Augmentation, bool) {
	a, err := Parse(raw)
	if err == nil {
		return a, true
	}

	var verr *ValidationError
	var serr *SyntaxError
	switch {
	case errors.As(err, &serr):
		v.log.Warn().Err(serr.Cause).Int64("offset", serr.Offset).Int("length", len(raw)).
			Msg("augmentation parse failed")
	case errors.As(err, &verr):
		ev := v.log.Warn()
		for _, f := range verr.Failures {
			ev = ev.Str(string(f.Kind), f.Reason)
		}
		ev.Msg("augmentation validation failed")
	default:
		v.log.Warn().Err(err).Msg("augmentation rejected")
	}
	return nil, false
}
