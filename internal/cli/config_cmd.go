// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/util"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: "Settings live in ~/.reasonchat/config.toml. Keys use dot notation:\n  " +
			strings.Join(config.Keys(), "\n  "),
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			path := a.cfgPath
			if path == "" {
				path = "config.toml"
			}
			data, err := config.Encode(a.cfg, path)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}),
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			v, err := a.cfg.Get(args[0])
			if err != nil {
				return err
			}
			s := fmt.Sprint(v)
			if args[0] == "prompt.system" {
				s = util.FirstLine(s)
			}
			writeln(cmd.OutOrStdout(), s)
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting and save the file",
		Args:  cobra.ExactArgs(2),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			path, err := a.writablePath()
			if err != nil {
				return err
			}
			cfg := a.cfg.Clone()
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger.Info("setting changed", zap.String("key", args[0]), zap.String("path", path))
			writeln(cmd.OutOrStdout(), fmt.Sprintf("%s = %v", args[0], args[1]))
			return nil
		}),
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			p, err := a.writablePath()
			if err != nil {
				return err
			}
			writeln(cmd.OutOrStdout(), p)
			return nil
		}),
	}

	cmd.AddCommand(show, get, set, path)
	return cmd
}

// writablePath is the loaded config file, or the default TOML file when
// running on defaults.
func (a *app) writablePath() (string, error) {
	if a.cfgPath != "" {
		return a.cfgPath, nil
	}
	if err := config.EnsureConfigDir(); err != nil {
		return "", err
	}
	return config.ConfigPathTOML()
}
