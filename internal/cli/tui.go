// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/ui/chat"
)

// runTUI opens the full-screen chat and applies config file edits while it
// runs.
func (a *app) runTUI(cmd *cobra.Command) error {
	orch, err := a.newOrchestrator()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reloads := make(chan *config.Config, 1)
	if a.cfgPath != "" {
		watcher, err := config.NewWatcher(a.cfgPath, config.DefaultDebounce, func(cfg *config.Config) {
			if a.modelFlag != "" {
				cfg.API.Model = a.modelFlag
			}
			select {
			case reloads <- cfg:
			default:
				// The screen has not taken the previous reload yet; keep the newest.
				select {
				case <-reloads:
				default:
				}
				reloads <- cfg
			}
		}, a.logger)
		if err != nil {
			a.logger.Warn("config watcher unavailable", zap.Error(err))
		} else {
			if err := watcher.Watch(ctx); err != nil {
				a.logger.Warn("config watcher failed to start", zap.Error(err))
			}
			defer watcher.Close()
		}
	}

	wd, _ := os.Getwd()
	model := chat.New(chat.Options{
		Orchestrator: orch,
		Config:       a.cfg,
		ConfigPath:   a.cfgPath,
		Reloads:      reloads,
		Logger:       a.logger,
		WorkDir:      wd,
	})

	a.logger.Info("starting chat screen", zap.String("model", a.cfg.API.Model))
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx)).Run()
	if err != nil {
		a.logger.Error("chat screen exited with error", zap.Error(err))
	}
	return err
}
