// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package augment

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Wire shapes used only to reflect the published schema. Parse does not
// depend on them.
type responseButtonDoc struct {
	Augmentation string         `json:"augmentation" jsonschema:"enum=response-button"`
	Data         ResponseButton `json:"data"`
}

type animationDoc struct {
	Augmentation string `json:"augmentation" jsonschema:"enum=animation"`
	Data         Effect `json:"data" jsonschema:"enum=Yes,enum=No,enum=Excitement,enum=Success"`
}

type chartDoc struct {
	Augmentation string `json:"augmentation" jsonschema:"enum=chart"`
	Data         Chart  `json:"data"`
}

type noneDoc struct {
	Augmentation string `json:"augmentation" jsonschema:"enum=none"`
	Data         any    `json:"data,omitempty"`
}

var (
	schemaOnce sync.Once
	schemaDoc  *jsonschema.Schema
)

// Schema returns the one-of JSON Schema describing the four augmentation
// shapes. Extra properties are allowed on every alternative.
func Schema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			DoNotReference:            true,
			AllowAdditionalProperties: true,
			ExpandedStruct:            true,
		}
		alts := []struct {
			kind Kind
			doc  any
		}{
			{KindResponseButton, &responseButtonDoc{}},
			{KindAnimation, &animationDoc{}},
			{KindChart, &chartDoc{}},
			{KindNone, &noneDoc{}},
		}
		root := &jsonschema.Schema{
			Version:     jsonschema.Version,
			Title:       "Augmentation",
			Description: "Structured UI directive trailing an assistant reply.",
		}
		for _, alt := range alts {
			s := r.Reflect(alt.doc)
			s.Version = ""
			s.Title = string(alt.kind)
			root.OneOf = append(root.OneOf, s)
		}
		schemaDoc = root
	})
	return schemaDoc
}

// SchemaJSON returns the schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	b, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "augment: marshal schema")
	}
	return b, nil
}
