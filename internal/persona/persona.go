// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persona loads the personas a conversation can be held with and
// keeps them current while the persona file changes on disk.
package persona

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/augchat/internal/model"
)

// augmentationHint is appended to built-in prompts so a model backend knows
// how to attach an augmentation after its reply.
const augmentationHint = `
After your reply you may attach one augmentation. Write the separator O^%^£O
followed by a single JSON object and nothing else. Allowed objects:
{"augmentation":"response-button","data":{"buttonText":"...","responseText":"..."}}
{"augmentation":"animation","data":"Yes|No|Excitement|Success"}
{"augmentation":"chart","data":{"type":"Bar|Line|Pie|Doughnut|PolarArea|Radar|Scatter|Bubble","data":{"labels":[...],"datasets":[{"label":"...","data":[...]}]}}}
{"augmentation":"none"}`

// Builtin returns the personas available without a persona file.
func Builtin() []model.Persona {
	return []model.Persona{
		{
			ID:     "assistant",
			Role:   "assistant",
			Avatar: "◆",
			Name:   "Assistant",
			Prompt: "You are a concise, helpful assistant." + augmentationHint,
		},
		{
			ID:     "coach",
			Role:   "coach",
			Avatar: "★",
			Name:   "Coach",
			Prompt: "You are an upbeat coach. Celebrate progress with animations and offer a next step as a response button." + augmentationHint,
		},
		{
			ID:     "analyst",
			Role:   "analyst",
			Avatar: "▲",
			Name:   "Analyst",
			Prompt: "You are a data analyst. When numbers are involved, attach a chart that summarizes them." + augmentationHint,
		},
	}
}

// file is the on-disk layout of a persona file.
type file struct {
	Personas []model.Persona `yaml:"personas"`
}

// LoadFile reads personas from a YAML file. IDs must be present and unique.
func LoadFile(path string) ([]model.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read persona file")
	}
	return Parse(data)
}

// Parse decodes persona YAML.
func Parse(data []byte) ([]model.Persona, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode persona file")
	}
	if len(f.Personas) == 0 {
		return nil, errors.New("persona file defines no personas")
	}

	seen := make(map[string]bool, len(f.Personas))
	for i := range f.Personas {
		p := &f.Personas[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, errors.Errorf("persona %d has no id", i)
		}
		if seen[p.ID] {
			return nil, errors.Errorf("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Name == "" {
			p.Name = p.ID
		}
	}
	return f.Personas, nil
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is a concurrency-safe set of personas.
type Registry struct {
	mu       sync.RWMutex
	personas map[string]model.Persona
	order    []string
	onChange []func()
}

// NewRegistry creates a registry holding personas.
func NewRegistry(personas []model.Persona) *Registry {
	r := &Registry{}
	r.replace(personas)
	return r
}

// Replace swaps the whole set and notifies subscribers.
func (r *Registry) Replace(personas []model.Persona) {
	r.mu.Lock()
	r.replace(personas)
	subs := append([]func(){}, r.onChange...)
	r.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

func (r *Registry) replace(personas []model.Persona) {
	r.personas = make(map[string]model.Persona, len(personas))
	r.order = r.order[:0]
	for _, p := range personas {
		if _, dup := r.personas[p.ID]; !dup {
			r.order = append(r.order, p.ID)
		}
		r.personas[p.ID] = p
	}
}

// OnChange registers fn to run after every Replace.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Get returns the persona with id.
func (r *Registry) Get(id string) (model.Persona, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personas[id]
	return p, ok
}

// Resolve returns the persona with id, or the first persona when id is
// unknown. An empty registry yields the zero persona.
func (r *Registry) Resolve(id string) model.Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.personas[id]; ok {
		return p
	}
	if len(r.order) > 0 {
		return r.personas[r.order[0]]
	}
	return model.Persona{}
}

// List returns personas in file order.
func (r *Registry) List() []model.Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.personas[id])
	}
	return out
}

// IDs returns the sorted persona IDs.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

// Load builds a registry from path, or the built-in set when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(Builtin()), nil
	}
	personas, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(personas), nil
}
