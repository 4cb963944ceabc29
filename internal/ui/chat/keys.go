// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/charmbracelet/bubbles/key"

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat screen.
type KeyMap struct {
	Submit      key.Binding
	Cancel      key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Preview     key.Binding
	Clear       key.Binding
	SaveLog     key.Binding
	ToggleTheme key.Binding
	FontUp      key.Binding
	FontDown    key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default key bindings. Letters are taken by the
// input line, so every action sits on a control key.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop reply"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/C-u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/C-d", "page down"),
		),
		Preview: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "code preview"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear chat"),
		),
		SaveLog: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "save chat log"),
		),
		ToggleTheme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "toggle theme"),
		),
		FontUp: key.NewBinding(
			key.WithKeys("ctrl+up", "alt+="),
			key.WithHelp("C-↑", "bigger panel"),
		),
		FontDown: key.NewBinding(
			key.WithKeys("ctrl+down", "alt+-"),
			key.WithHelp("C-↓", "smaller panel"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+g", "f1"),
			key.WithHelp("C-g", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "exit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.SaveLog, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Cancel, k.PageUp, k.PageDown},
		{k.Preview, k.Clear, k.SaveLog},
		{k.ToggleTheme, k.FontUp, k.FontDown},
		{k.Help, k.Quit},
	}
}
