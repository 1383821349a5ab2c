// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
)

// Completion is one completion candidate.
type Completion struct {
	Value       string
	Description string
	Score       int
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer completes command names and arguments.
type Completer struct {
	registry *Registry

	// Dynamic argument sources, set by the front end.
	PersonasFn func() []string
	SessionsFn func() []string

	// TUI includes TUIOnly commands.
	TUI bool
}

// NewCompleter creates a completer over registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns candidates for the end of input.
func (c *Completer) Complete(input string) []Completion {
	if !IsCommand(input) {
		return nil
	}
	input = strings.TrimLeft(input, " \t")
	parts := splitCommandLine(input)
	trailing := strings.HasSuffix(input, " ")

	if len(parts) == 0 || (len(parts) == 1 && !trailing) {
		partial := ""
		if len(parts) == 1 {
			partial = parts[0]
		}
		return c.completeCommands(partial)
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}
	argIndex := len(parts) - 2
	partial := parts[len(parts)-1]
	if trailing {
		argIndex++
		partial = ""
	}
	return c.completeArg(cmd, argIndex, partial)
}

// CompleteLine returns whole replacement lines, the shape line editors
// expect.
func (c *Completer) CompleteLine(line string) []string {
	completions := c.Complete(line)
	if len(completions) == 0 {
		return nil
	}
	prefix := ""
	if i := strings.LastIndex(line, " "); i >= 0 {
		prefix = line[:i+1]
	}
	out := make([]string, 0, len(completions))
	for _, comp := range completions {
		out = append(out, prefix+comp.Value)
	}
	return out
}

func (c *Completer) completeCommands(partial string) []Completion {
	partial = strings.ToLower(partial)
	var out []Completion
	for _, cmd := range c.registry.Visible(c.TUI) {
		if strings.HasPrefix(cmd.Name, partial) {
			out = append(out, Completion{Value: cmd.Name, Description: cmd.Description, Score: score(cmd.Name, partial)})
			continue
		}
		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(alias, partial) {
				// Aliases rank below names
				out = append(out, Completion{Value: alias, Description: cmd.Description, Score: score(alias, partial) - 10})
				break
			}
		}
	}
	sortCompletions(out)
	return out
}

func (c *Completer) completeArg(cmd *Command, index int, partial string) []Completion {
	if index < 0 || index >= len(cmd.Args) {
		return nil
	}
	def := cmd.Args[index]

	var values []string
	switch def.Type {
	case ArgTypeEnum:
		values = def.Values
	case ArgTypePersona:
		if c.PersonasFn != nil {
			values = c.PersonasFn()
		}
	case ArgTypeSession:
		if c.SessionsFn != nil {
			values = c.SessionsFn()
		}
	}

	lower := strings.ToLower(partial)
	var out []Completion
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), lower) {
			out = append(out, Completion{Value: v, Description: def.Description, Score: score(v, lower)})
		}
	}
	sortCompletions(out)
	return out
}

// score ranks exact matches first, then shorter candidates.
func score(value, partial string) int {
	if strings.EqualFold(value, partial) {
		return 1000
	}
	return 500 - len(value)
}

func sortCompletions(c []Completion) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		return c[i].Value < c[j].Value
	})
}
