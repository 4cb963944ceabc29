// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/reasonchat/internal/export"
	"github.com/jeranaias/reasonchat/internal/storage"
)

func newHistoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"sessions"},
		Short:   "Browse archived chat sessions",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			arch, err := a.requireArchive()
			if err != nil {
				return err
			}
			sessions, err := arch.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), storage.FormatSessionList(sessions))
			if len(sessions) == 0 {
				writeln(cmd.OutOrStdout())
			}
			return nil
		}),
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum sessions to show")

	var format string
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session (an ID prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			arch, err := a.requireArchive()
			if err != nil {
				return err
			}
			sess, err := arch.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			exporter, err := exporterFor(format)
			if err != nil {
				return err
			}
			title := "Session " + shortID(sess.ID)
			data, err := exporter.Export(export.FromMessages(title, sess.Model, sess.Messages))
			if errors.Is(err, export.ErrEmptyTranscript) {
				writeln(cmd.OutOrStdout(), "Session has no messages.")
				return nil
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}),
	}
	show.Flags().StringVarP(&format, "format", "f", "text", "output format: text, md or json")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			arch, err := a.requireArchive()
			if err != nil {
				return err
			}
			if err := arch.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			writeln(cmd.OutOrStdout(), "Deleted session "+args[0])
			return nil
		}),
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

// requireArchive opens the archive or explains why it is unavailable.
func (a *app) requireArchive() (*storage.Archive, error) {
	arch, err := a.openArchive()
	if err != nil {
		return nil, err
	}
	if arch == nil {
		return nil, errors.New("session archive is disabled (storage.disabled = true)")
	}
	return arch, nil
}

func exporterFor(format string) (export.Exporter, error) {
	switch format {
	case "", "text", "txt":
		return export.TextExporter{}, nil
	case "md", "markdown":
		return export.MarkdownExporter{}, nil
	case "json":
		return export.JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text, md or json)", format)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
