// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl_commands.go - slash commands in line mode.

package cli

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/commands"
	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/session"
	"github.com/jeranaias/augchat/internal/util"
)

// replHandler handles one command; it returns true to end the session.
type replHandler func(r *REPL, ctx context.Context, args []string) bool

var replHandlers = map[string]replHandler{
	commands.Help:     (*REPL).cmdHelp,
	commands.Quit:     func(*REPL, context.Context, []string) bool { return true },
	commands.Clear:    (*REPL).cmdClear,
	commands.New:      (*REPL).cmdNew,
	commands.Persona:  (*REPL).cmdPersona,
	commands.Personas: (*REPL).cmdPersonas,
	commands.Copy:     (*REPL).cmdCopy,
	commands.Open:     (*REPL).cmdOpen,
	commands.Press:    (*REPL).cmdPress,
}

// runCommand dispatches a slash command.
func (r *REPL) runCommand(ctx context.Context, line string) bool {
	res := r.parser.Parse(line)
	if res.CommandName == "" {
		return false
	}
	if res.Command == nil {
		r.printError(errors.Errorf("unknown command %s, try /help", res.CommandName))
		return false
	}
	if res.Command.TUIOnly {
		r.println(DimStyle.Render(res.Command.Name + " needs the full screen UI"))
		return false
	}
	if err := commands.ValidateArgs(res.Command, res.Args); err != nil {
		r.printError(err)
		return false
	}
	handler, ok := replHandlers[res.Command.Name]
	if !ok {
		return false
	}
	return handler(r, ctx, res.Args)
}

func (r *REPL) cmdHelp(_ context.Context, _ []string) bool {
	r.println(TitleStyle.Render("Commands"))
	for _, cmd := range r.registry.Visible(false) {
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		r.println("  " + LabelStyle.Render(util.PadRight(usage, 16)) + " " + ValueStyle.Render(cmd.Description))
	}
	return false
}

func (r *REPL) cmdClear(_ context.Context, _ []string) bool {
	if err := r.ctrl.Clear(); err != nil {
		r.printError(err)
		return false
	}
	r.println(SuccessStyle.Render("Cleared."))
	return false
}

func (r *REPL) cmdNew(_ context.Context, _ []string) bool {
	if err := r.ctrl.Load(model.NewConversation(r.ctrl.Persona())); err != nil {
		r.printError(err)
		return false
	}
	r.println(SuccessStyle.Render("New chat with " + r.ctrl.Persona().DisplayName() + "."))
	return false
}

func (r *REPL) cmdPersona(ctx context.Context, args []string) bool {
	if len(args) == 0 {
		return r.cmdPersonas(ctx, nil)
	}
	p, ok := r.personas.Get(args[0])
	if !ok {
		r.printError(errors.Errorf("unknown persona %s", args[0]))
		return false
	}
	r.ctrl.SetPersona(p)
	r.println(SuccessStyle.Render("Now chatting with " + p.DisplayName() + "."))
	return false
}

func (r *REPL) cmdPersonas(_ context.Context, _ []string) bool {
	current := r.ctrl.Persona().ID
	for _, p := range r.personas.List() {
		mark := "  "
		if p.ID == current {
			mark = "* "
		}
		r.println(mark + LabelStyle.Render(util.PadRight(p.ID, 12)) + " " + ValueStyle.Render(p.DisplayName()))
	}
	return false
}

func (r *REPL) cmdCopy(_ context.Context, _ []string) bool {
	last, ok := r.ctrl.Conversation().LastAssistant()
	if !ok {
		r.println(DimStyle.Render("Nothing to copy yet."))
		return false
	}
	if err := r.copyText(last.Content); err != nil {
		r.printError(errors.Wrap(err, "copy"))
		return false
	}
	r.println(SuccessStyle.Render("Copied last reply."))
	return false
}

func (r *REPL) cmdOpen(_ context.Context, args []string) bool {
	if r.store == nil {
		r.printError(errors.New("no chat storage configured"))
		return false
	}
	conv, err := r.store.Load(args[0])
	if err != nil {
		r.printError(err)
		return false
	}
	if err := r.ctrl.Load(conv); err != nil {
		r.printError(err)
		return false
	}
	r.printWelcome()
	return false
}

// cmdPress submits the newest response button.
func (r *REPL) cmdPress(ctx context.Context, _ []string) bool {
	msgs := r.ctrl.Snapshot()
	for i := len(msgs) - 1; i >= 0; i-- {
		b, ok := msgs[i].Augmentation.(augment.ResponseButton)
		if !ok {
			continue
		}
		if r.echo {
			r.println(PromptStyle.Render("You: ") + b.ResponseText)
		}
		if err := r.ctrl.ClickButton(ctx, b); err != nil && !errors.Is(err, session.ErrEmptyInput) {
			r.printError(err)
			return false
		}
		r.ctrl.Wait()
		return false
	}
	r.println(DimStyle.Render("No button to press."))
	return false
}
