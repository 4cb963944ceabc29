// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/reasonchat/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting reasonchat..."
	}
	if m.preview != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.preview.View())
	}

	parts := []string{m.header(), m.viewport.View()}
	if kind, content, open := m.transcript.Live(); open {
		parts = append(parts, m.renderer().Panel(kind, content, panelHeight(m.cfg.GUI.FontSize)))
	}
	parts = append(parts, m.inputView(), m.statusLine())
	if m.showHelp {
		parts = append(parts, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) header() string {
	t := m.theme
	title := t.Header.Render("reasonchat")
	info := t.HeaderDim.Render(fmt.Sprintf("%s · %s theme", util.TruncateWidth(m.cfg.API.Model, 32), t.Name()))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(title + " " + info)
}

func (m Model) inputView() string {
	box := m.theme.InputBox.Width(max(m.width-2, 10))
	switch m.state {
	case StateSavingLog:
		return box.Render(m.saveAs.View())
	case StateConfirmClear:
		return box.Render(m.theme.ErrorText.Render(ConfirmClear))
	default:
		return box.Render(m.input.View())
	}
}

func (m Model) statusLine() string {
	t := m.theme
	var left string
	if m.state == StateStreaming || m.prior == StateStreaming {
		left = m.spinner.View() + " " + t.StatusDesc.Render("generating")
	}
	if n := m.transcript.PendingArtifacts(); n > 0 {
		left += " " + t.StatusKey.Render(fmt.Sprintf("[%d code]", n))
	}
	status := m.status
	if status == "" && !m.showHelp {
		status = m.help.ShortHelpView(m.keys.ShortHelp())
	} else {
		status = t.StatusDesc.Render(util.TruncateWidth(status, max(m.width-16, 10)))
	}
	line := strings.TrimSpace(left + " " + status)
	return t.StatusBar.MaxWidth(max(m.width, 10)).Render(line)
}
