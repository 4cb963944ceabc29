// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/export"
	"github.com/jeranaias/reasonchat/internal/orchestrator"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// waitForEvent reads the next event of a running turn. Each StreamEventMsg
// handler schedules the following read, so the channel is always drained.
func waitForEvent(events <-chan orchestrator.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return StreamDoneMsg{}
		}
		return StreamEventMsg{Event: ev}
	}
}

// waitForReload blocks until the config watcher delivers a new config.
func waitForReload(reloads <-chan *config.Config) tea.Cmd {
	if reloads == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-reloads
		if !ok {
			return nil
		}
		return ConfigReloadedMsg{Config: cfg}
	}
}

// saveLogCmd writes the chat log in the format implied by path.
func saveLogCmd(t *export.Transcript, path string) tea.Cmd {
	return func() tea.Msg {
		return LogSavedMsg{Path: path, Err: export.WriteFile(t, path)}
	}
}

// saveConfigCmd persists cfg. An empty path writes the default TOML file.
func saveConfigCmd(cfg *config.Config, path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			if err := config.EnsureConfigDir(); err != nil {
				return ConfigSavedMsg{Err: err}
			}
			p, err := config.ConfigPathTOML()
			if err != nil {
				return ConfigSavedMsg{Err: err}
			}
			path = p
		}
		return ConfigSavedMsg{Path: path, Err: config.Save(cfg, path)}
	}
}
