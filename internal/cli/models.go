// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/reasonchat/internal/util"
)

func newModelsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models installed in Ollama",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			models, err := a.client().ListModels(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(models) == 0 {
				writeln(out, "No models installed. Try `ollama pull "+a.cfg.API.Model+"`.")
				return nil
			}
			for _, m := range models {
				mark := " "
				if m.Name == a.cfg.API.Model {
					mark = "*"
				}
				size := m.FormatSize()
				fmt.Fprintf(out, "%s %s %s\n", mark, util.PadWidth(m.Name, 32), size)
			}
			return nil
		}),
	}
}
