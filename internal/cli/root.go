// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/logging"
	"github.com/jeranaias/reasonchat/internal/ollama"
	"github.com/jeranaias/reasonchat/internal/orchestrator"
	"github.com/jeranaias/reasonchat/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app holds what PersistentPreRunE prepares for the subcommands.
type app struct {
	configFlag string
	modelFlag  string
	debug      bool

	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger

	archive *storage.Archive
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "reasonchat",
		Short:         "Terminal chat for local Ollama models with structured reasoning",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		}),
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFlag, "config", "c", "", "config file (default ~/.reasonchat/config.toml)")
	flags.StringVarP(&a.modelFlag, "model", "m", "", "model to use (overrides api.model)")
	flags.BoolVar(&a.debug, "debug", false, "write debug logs")

	root.AddCommand(
		newAskCommand(a),
		newChatCommand(a),
		newHistoryCommand(a),
		newConfigCommand(a),
		newModelsCommand(a),
	)
	return root
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// setup loads the configuration and opens the log file.
func (a *app) setup() error {
	var err error
	if a.configFlag != "" {
		a.cfg, err = config.LoadFromPath(a.configFlag)
		a.cfgPath = a.configFlag
	} else {
		a.cfg, a.cfgPath, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.modelFlag != "" {
		a.cfg.API.Model = a.modelFlag
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	a.logger, err = logging.New(logging.Options{
		Path:  a.cfg.Log.Path,
		Dir:   dir,
		Level: a.cfg.Log.Level,
		Debug: a.debug,
	})
	if err != nil {
		return err
	}
	a.logger.Debug("configuration loaded", zap.String("path", a.cfgPath), zap.String("model", a.cfg.API.Model))
	return nil
}

// wrap runs fn and releases the archive and log file afterwards, also
// when fn fails.
func (a *app) wrap(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.teardown()
		return fn(cmd, args)
	}
}

func (a *app) teardown() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn("closing archive", zap.Error(err))
		}
		a.archive = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// client builds the Ollama client from the configuration.
func (a *app) client() *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		Endpoint: a.cfg.API.OllamaURL,
		Model:    a.cfg.API.Model,
		Timeout:  a.cfg.TimeoutDuration(),
		Logger:   a.logger,
	})
}

// archivePath resolves storage.path, defaulting to the config directory.
func (a *app) archivePath() (string, error) {
	if a.cfg.Storage.Path != "" {
		return a.cfg.Storage.Path, nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, storage.DefaultFile), nil
}

// openArchive opens the session archive once. It returns nil when the
// archive is disabled.
func (a *app) openArchive() (*storage.Archive, error) {
	if a.cfg.Storage.Disabled {
		return nil, nil
	}
	if a.archive != nil {
		return a.archive, nil
	}
	path, err := a.archivePath()
	if err != nil {
		return nil, err
	}
	arch, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	arch.Model = a.cfg.API.Model
	a.archive = arch
	return arch, nil
}

// orchestrator wires client, archive and settings together. An archive
// that cannot be opened is logged and skipped.
func (a *app) newOrchestrator() (*orchestrator.Orchestrator, error) {
	settings, err := orchestrator.SettingsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	opts := orchestrator.Options{Settings: settings, Logger: a.logger}

	arch, err := a.openArchive()
	if err != nil {
		a.logger.Warn("session archive unavailable", zap.Error(err))
	} else if arch != nil {
		opts.Archive = arch
	}
	return orchestrator.New(a.client(), nil, opts), nil
}

func writeln(w io.Writer, a ...any) {
	fmt.Fprintln(w, a...)
}
