// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/export"
	"github.com/jeranaias/reasonchat/internal/orchestrator"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// lineEditor wraps liner with input history persisted in the config
// directory.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = e.line.ReadHistory(f)
		f.Close()
	}
	return e
}

// Prompt reads a line and adds it to the history.
func (e *lineEditor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (e *lineEditor) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

const replHelp = `Commands:
  /help          show this help
  /clear         start a new conversation
  /save <path>   save the conversation (.txt, .md or .json)
  /quit          exit (Ctrl+D works too)
Ctrl+C stops a reply that is streaming.`

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in a line-based REPL",
		Long: `Chat runs the conversation in the terminal without the full-screen
interface. Replies stream as plain text and reasoning sections are printed
under their titles.`,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			orch, err := a.newOrchestrator()
			if err != nil {
				return err
			}
			editor := newLineEditor()
			defer editor.Close()

			r := &repl{
				orch:   orch,
				in:     editor,
				out:    cmd.OutOrStdout(),
				sink:   newConsoleSink(cmd.OutOrStdout(), a.cfg.GUI.Theme),
				model:  a.cfg.API.Model,
				logger: a.logger,
			}
			return r.run(cmd.Context())
		}),
	}
}

// repl is the read-send-print loop behind the chat command.
type repl struct {
	orch   *orchestrator.Orchestrator
	in     lineReader
	out    io.Writer
	sink   *consoleSink
	model  string
	logger *zap.Logger
}

func (r *repl) run(ctx context.Context) error {
	writeln(r.out, fmt.Sprintf("reasonchat %s with %s. Type /help for commands.", Version, r.model))
	for {
		line, err := r.in.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			writeln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(line); quit {
				return nil
			}
			continue
		}
		r.send(ctx, line)
	}
}

// send streams one turn. Ctrl+C cancels only this turn.
func (r *repl) send(ctx context.Context, line string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r.sink.reset()
	if err := r.orch.Stream(turnCtx, line, r.sink, r.sink); err != nil {
		r.logger.Debug("turn ended with error", zap.Error(err))
	}
	for _, a := range r.sink.artifacts {
		writeln(r.out, "[code block: "+a.Title()+"]")
	}
	writeln(r.out)
}

// command runs a slash command and reports whether to quit.
func (r *repl) command(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/q", "/exit":
		return true
	case "/help", "/h":
		writeln(r.out, replHelp)
	case "/clear", "/c":
		r.orch.History().Clear()
		writeln(r.out, "Chat cleared. Ready for a new software engineering discourse!")
	case "/save", "/s":
		if arg == "" {
			arg = export.DefaultFilename("reasonchat", ".txt")
		}
		log := export.FromMessages("reasonchat", r.model, r.orch.History().Messages())
		if err := export.WriteFile(log, arg); err != nil {
			writeln(r.out, "Save failed: "+err.Error())
		} else {
			writeln(r.out, "Chat log saved to "+arg)
		}
	default:
		writeln(r.out, "Unknown command "+name+". Type /help for commands.")
	}
	return false
}
