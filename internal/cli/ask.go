// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/reasonchat/internal/export"
)

func newAskCommand(a *app) *cobra.Command {
	var saveDir string

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Ask a single question and print the reply",
		Long: `Ask sends one prompt and prints the reply as it streams. Reasoning
sections are printed under their titles. Without arguments, or with "-",
the prompt is read from stdin.`,
		Example: `  reasonchat ask "Why is my goroutine leaking?"
  git diff | reasonchat ask -
  reasonchat ask --save-code ./out "Write a CSV parser in Go"`,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			orch, err := a.newOrchestrator()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			sink := newConsoleSink(cmd.OutOrStdout(), a.cfg.GUI.Theme)
			if err := orch.Stream(ctx, prompt, sink, sink); err != nil {
				return reportedTurnError("ask", err)
			}

			if saveDir != "" {
				return saveArtifacts(cmd.OutOrStdout(), sink, saveDir, a)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&saveDir, "save-code", "", "write code blocks from the reply into `dir`")
	return cmd
}

// readPrompt joins args, or reads stdin when there are none or the only
// argument is "-".
func readPrompt(in io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		prompt := strings.TrimSpace(strings.Join(args, " "))
		if prompt == "" {
			return "", fmt.Errorf("empty prompt")
		}
		return prompt, nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return prompt, nil
}

// saveArtifacts writes each collected code block under dir using its
// suggested name. Repeated names get a numeric suffix.
func saveArtifacts(out io.Writer, sink *consoleSink, dir string, a *app) error {
	used := make(map[string]bool, len(sink.artifacts))
	for _, art := range sink.artifacts {
		path := filepath.Join(dir, uniqueName(art.SuggestedName(), used))
		if err := export.SaveArtifact(art, path); err != nil {
			return err
		}
		a.logger.Info("saved code block", zap.String("path", path), zap.String("language", art.Language))
		writeln(out, "Saved "+path)
	}
	return nil
}

// uniqueName returns name, or name with "-2", "-3", ... before the extension
// when it was already handed out.
func uniqueName(name string, used map[string]bool) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	used[candidate] = true
	return candidate
}
