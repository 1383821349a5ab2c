// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package commands is the slash command catalog shared by the chat TUI and the
plain line-mode REPL.

The catalog knows names, aliases, usage and argument shapes. It does not run
anything: each front end maps a command's canonical Name to its own handler.

# Usage

	reg := commands.NewRegistry()
	p := commands.NewParser(reg)

	res := p.Parse("/persona coach")
	if res.IsCommand && res.Command != nil {
		if err := commands.ValidateArgs(res.Command, res.Args); err != nil {
			// show err
		}
		switch res.Command.Name {
		case commands.Persona:
			// ...
		}
	}

Completion for a line editor:

	c := commands.NewCompleter(reg)
	c.PersonasFn = registry.IDs
	lines := c.CompleteLine("/pers")
*/
package commands
