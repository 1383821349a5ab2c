// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - line-mode chat. Replies stream to stdout as they arrive and
// augmentations print as text under them.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/augchat/internal/augment"
	"github.com/jeranaias/augchat/internal/commands"
	"github.com/jeranaias/augchat/internal/config"
	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/persona"
	"github.com/jeranaias/augchat/internal/session"
	"github.com/jeranaias/augchat/internal/storage"
	"github.com/jeranaias/augchat/internal/ui/components"
	"github.com/jeranaias/augchat/internal/ui/styles"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of input. io.EOF ends the session.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// linerReader provides history and line editing on a terminal.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader(completer *commands.Completer) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completer.CompleteLine)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &linerReader{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err == liner.ErrPromptAborted {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() error {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}

// scanReader reads piped input. It echoes nothing, so the REPL echoes the
// input itself.
type scanReader struct {
	scanner *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scanReader{scanner: s}
}

func (r *scanReader) Prompt(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

// REPL is the line-mode chat loop.
type REPL struct {
	ctrl      *session.Controller
	store     storage.Store
	personas  *persona.Registry
	parser    *commands.Parser
	registry  *commands.Registry
	completer *commands.Completer
	charts    components.ChartRenderer
	reader    lineReader

	// echo prints submitted input when the reader does not
	echo  bool
	width int

	mu      sync.Mutex
	out     io.Writer
	printed int // bytes of the live reply already written

	copyText func(string) error
}

// replOptions configures a REPL.
type replOptions struct {
	conv     *model.Conversation
	sender   session.Sender
	store    storage.Store
	personas *persona.Registry
	out      io.Writer
	width    int
	cfg      *config.Config
}

func newREPL(opts replOptions) *REPL {
	registry := commands.NewRegistry()
	completer := commands.NewCompleter(registry)
	completer.PersonasFn = opts.personas.IDs

	r := &REPL{
		store:     opts.store,
		personas:  opts.personas,
		parser:    commands.NewParser(registry),
		registry:  registry,
		completer: completer,
		charts:    components.NewTextChartRenderer(),
		width:     opts.width,
		out:       opts.out,
		copyText:  clipboard.WriteAll,
	}
	if opts.store != nil {
		completer.SessionsFn = r.sessionIDs
	}

	r.ctrl = session.NewController(opts.conv, session.Options{
		Sender:      opts.sender,
		Host:        replHost{r},
		OnEvent:     r.onEvent,
		Logger:      log.Logger,
		CommitDelay: opts.cfg.UI.CommitDelay(),
		Location:    opts.cfg.Endpoint.Location,
	})
	return r
}

// runREPL runs line mode until EOF, /quit or ctx is cancelled.
func runREPL(ctx context.Context, app *App, deps *chatDeps) error {
	r := newREPL(replOptions{
		conv:     deps.conv,
		sender:   app.newClient(log.Logger),
		store:    deps.store,
		personas: deps.personas,
		out:      app.Out,
		width:    GetTerminalWidth(),
		cfg:      app.Config(),
	})
	if IsTTY() {
		r.reader = newLinerReader(r.completer)
	} else {
		r.reader = newScanReader(app.In)
		r.echo = true
	}
	defer r.reader.Close()
	return r.Run(ctx)
}

// Run reads and handles lines until the session ends.
func (r *REPL) Run(ctx context.Context) error {
	r.printWelcome()
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := r.reader.Prompt(r.prompt())
		if err == io.EOF {
			r.println("")
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if r.echo {
			r.println(PromptStyle.Render("You: ") + input)
		}

		if commands.IsCommand(input) {
			if quit := r.runCommand(ctx, input); quit {
				return nil
			}
			continue
		}
		r.send(ctx, input)
	}
}

func (r *REPL) prompt() string {
	return PromptStyle.Render("you> ")
}

// send submits input and blocks until the reply is committed or fails.
func (r *REPL) send(ctx context.Context, input string) {
	err := r.ctrl.Submit(ctx, input)
	switch {
	case err == nil:
		r.ctrl.Wait()
	case errors.Is(err, session.ErrEmptyInput):
		// Notify already printed it
	default:
		r.printError(err)
	}
}

// =============================================================================
// CONTROLLER EVENTS
// =============================================================================

func (r *REPL) onEvent(e session.Event) {
	switch e.Type {
	case session.EventStateChanged:
		if e.State == session.StateSending {
			r.mu.Lock()
			r.printed = 0
			r.mu.Unlock()
		}
	case session.EventContent:
		r.writeContent(e.Content)
	case session.EventCommitted:
		r.writeContent(e.Message.Content)
		r.mu.Lock()
		started := r.printed > 0
		r.mu.Unlock()
		if !started {
			r.write(r.speaker())
		}
		r.write("\n")
		r.printAugmentation(e.Message.Augmentation)
	}
}

func (r *REPL) speaker() string {
	return PromptStyle.Render(r.ctrl.Persona().DisplayName() + ": ")
}

// writeContent prints the part of content not yet written. Content only
// grows during one reply.
func (r *REPL) writeContent(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.printed == 0 && content != "" {
		fmt.Fprint(r.out, r.speaker())
	}
	if len(content) > r.printed {
		fmt.Fprint(r.out, content[r.printed:])
		r.printed = len(content)
	}
}

// printAugmentation writes a text rendition of a under the reply.
func (r *REPL) printAugmentation(a augment.Augmentation) {
	switch v := a.(type) {
	case augment.ResponseButton:
		r.println(AugmentStyle.Render(fmt.Sprintf("  [%s]", v.ButtonText)) + DimStyle.Render("  /press to send "+fmt.Sprintf("%q", v.ResponseText)))
	case augment.Animation:
		frame := styles.EffectFrame(string(v.Effect), len(styles.EffectFrames[string(v.Effect)]))
		r.println(AugmentStyle.Render("  " + strings.TrimSpace(frame)))
	case augment.Chart:
		out, err := r.charts.Render(v.Type, v.Data, v.Options, r.width-2)
		if err != nil {
			r.println(AugmentStyle.Render("  " + augment.Describe(v)))
			return
		}
		r.println(indent(out, "  "))
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *REPL) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, s)
}

func (r *REPL) println(s string) {
	r.write(s + "\n")
}

func (r *REPL) printError(err error) {
	r.println(ErrorStyle.Render("[Error]") + " " + err.Error())
}

func (r *REPL) printWelcome() {
	p := r.ctrl.Persona()
	r.println(TitleStyle.Render("augchat") + DimStyle.Render(" with "+p.DisplayName()+". /help for commands, ctrl+d to quit."))
	for _, msg := range r.ctrl.Snapshot() {
		label := msg.Role.DisplayName()
		if msg.Role == model.RoleAssistant {
			label = p.DisplayName()
		}
		r.println(PromptStyle.Render(label+": ") + msg.Content)
		r.printAugmentation(msg.Augmentation)
	}
}

func (r *REPL) sessionIDs() []string {
	metas, err := r.store.List()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.ID)
	}
	return ids
}

// =============================================================================
// HOST
// =============================================================================

// replHost lets the controller persist and report through the REPL.
type replHost struct {
	r *REPL
}

func (h replHost) SaveMessages(conv *model.Conversation) {
	if h.r.store == nil {
		return
	}
	if err := h.r.store.Save(conv); err != nil {
		log.Error().Err(err).Str("conversation", conv.ID).Msg("save failed")
		h.r.printError(err)
	}
}

func (h replHost) Notify(err error) {
	h.r.printError(err)
}

func (h replHost) Redirect(url string) {
	h.r.println(WarningStyle.Render("Login required: ") + url)
}

func (h replHost) ForceUpdate() {}
