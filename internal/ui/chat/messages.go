// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/orchestrator"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StreamEventMsg carries one orchestrator event into the update loop.
type StreamEventMsg struct {
	Event orchestrator.Event
}

// StreamDoneMsg signals that the event channel was closed.
type StreamDoneMsg struct{}

// ConfigReloadedMsg delivers a configuration reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// LogSavedMsg reports the result of saving the chat log.
type LogSavedMsg struct {
	Path string
	Err  error
}

// ConfigSavedMsg reports the result of persisting appearance settings.
type ConfigSavedMsg struct {
	Path string
	Err  error
}
