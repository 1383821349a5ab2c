// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
)

// Canonical command names.
const (
	Help     = "/help"
	Quit     = "/quit"
	Clear    = "/clear"
	New      = "/new"
	Persona  = "/persona"
	Personas = "/personas"
	Copy     = "/copy"
	Chats    = "/chats"
	Open     = "/open"
	Press    = "/press"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command describes one slash command.
type Command struct {
	// Name is the canonical name, including the slash.
	Name    string
	Aliases []string

	Description string

	// Usage shows argument syntax (e.g., "/persona <id>")
	Usage string

	Args []ArgDef

	// Hidden commands are accepted but left out of help and completion.
	Hidden bool

	// TUIOnly commands need the full screen UI.
	TUIOnly bool
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values for enum types
	Values []string
}

// ArgType selects argument completion.
type ArgType int

const (
	ArgTypeString  ArgType = iota // Free-form string
	ArgTypePersona                // Persona ID
	ArgTypeSession                // Stored chat ID
	ArgTypeEnum                   // One of Values
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds the known commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry holding the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command. A later registration with the same name wins.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get looks a command up by name or alias, ignoring case. The leading slash
// is optional.
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	return r.aliases[name]
}

// All returns every command sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Visible returns the commands shown in help. tui selects whether TUIOnly
// commands are included.
func (r *Registry) Visible(tui bool) []*Command {
	var out []*Command
	for _, cmd := range r.All() {
		if cmd.Hidden || (cmd.TUIOnly && !tui) {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

// Usages returns the usage string of every visible command.
func (r *Registry) Usages(tui bool) []string {
	cmds := r.Visible(tui)
	out := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		if cmd.Usage != "" {
			out = append(out, cmd.Usage)
		} else {
			out = append(out, cmd.Name)
		}
	}
	return out
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        Help,
		Aliases:     []string{"/h", "/?"},
		Description: "Show commands and keys",
	})
	r.Register(&Command{
		Name:        Quit,
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit augchat",
	})
	r.Register(&Command{
		Name:        Clear,
		Description: "Clear the messages of this chat",
	})
	r.Register(&Command{
		Name:        New,
		Aliases:     []string{"/n"},
		Description: "Start a new chat with the current persona",
	})
	r.Register(&Command{
		Name:        Persona,
		Aliases:     []string{"/p"},
		Description: "Switch persona",
		Usage:       "/persona <id>",
		Args: []ArgDef{
			{Name: "id", Type: ArgTypePersona, Description: "persona ID"},
		},
	})
	r.Register(&Command{
		Name:        Personas,
		Description: "List personas",
	})
	r.Register(&Command{
		Name:        Copy,
		Aliases:     []string{"/y"},
		Description: "Copy the last reply to the clipboard",
	})
	r.Register(&Command{
		Name:        Press,
		Aliases:     []string{"/b"},
		Description: "Press the newest response button",
	})
	r.Register(&Command{
		Name:        Chats,
		Aliases:     []string{"/sessions"},
		Description: "Toggle the saved chat list",
		TUIOnly:     true,
	})
	r.Register(&Command{
		Name:        Open,
		Aliases:     []string{"/load"},
		Description: "Open a saved chat",
		Usage:       "/open <id>",
		Args: []ArgDef{
			{Name: "id", Required: true, Type: ArgTypeSession, Description: "saved chat ID"},
		},
	})
}
