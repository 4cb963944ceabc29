// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/reasonchat/internal/section"
)

// Theme holds all the styled components for the application.
type Theme struct {
	Palette Palette

	// Terminal capabilities
	ColorProfile termenv.Profile

	App       lipgloss.Style
	Header    lipgloss.Style
	HeaderDim lipgloss.Style

	// Transcript
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Body           lipgloss.Style
	ErrorText      lipgloss.Style
	InfoText       lipgloss.Style

	// Live section panel
	SectionPanel lipgloss.Style

	// Input and status
	InputBox   lipgloss.Style
	StatusBar  lipgloss.Style
	StatusKey  lipgloss.Style
	StatusDesc lipgloss.Style

	// Modal overlays (artifact preview, prompts)
	Modal      lipgloss.Style
	ModalTitle lipgloss.Style
	Button     lipgloss.Style

	sections map[section.Kind]lipgloss.Color
}

// NewTheme builds the theme named name ("dark" or "light").
func NewTheme(name string) *Theme {
	p := PaletteFor(name)
	t := &Theme{
		Palette:      p,
		ColorProfile: termenv.ColorProfile(),
		sections: map[section.Kind]lipgloss.Color{
			section.KindThinking:     p.Thinking,
			section.KindAnalyzing:    p.Analyzing,
			section.KindImplementing: p.Implementing,
		},
	}

	t.App = lipgloss.NewStyle().Foreground(p.TextPrimary)
	t.Header = lipgloss.NewStyle().Bold(true).Foreground(p.Accent).Padding(0, 1)
	t.HeaderDim = lipgloss.NewStyle().Foreground(p.TextMuted)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(p.User)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(p.Assistant)
	t.Body = lipgloss.NewStyle().Foreground(p.TextPrimary)
	t.ErrorText = lipgloss.NewStyle().Foreground(p.Error)
	t.InfoText = lipgloss.NewStyle().Italic(true).Foreground(p.Info)

	t.SectionPanel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	t.InputBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Overlay).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().Foreground(p.TextSecondary).Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	t.StatusDesc = lipgloss.NewStyle().Foreground(p.TextMuted)

	t.Modal = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(p.Accent).
		Padding(0, 1)
	t.ModalTitle = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	t.Button = lipgloss.NewStyle().Foreground(p.Surface).Background(p.Accent).Padding(0, 1)
	return t
}

// Name returns the theme name.
func (t *Theme) Name() string {
	return t.Palette.Name
}

// IsDark reports whether the theme has a dark background.
func (t *Theme) IsDark() bool {
	return t.Palette.Name != LightPalette.Name
}

// SectionColor returns the tag color for a section kind.
func (t *Theme) SectionColor(k section.Kind) lipgloss.Color {
	if c, ok := t.sections[k]; ok {
		return c
	}
	return t.Palette.TextSecondary
}

// SectionTitle styles a section heading in its kind's color.
func (t *Theme) SectionTitle(k section.Kind) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.SectionColor(k))
}

// SectionBody styles section content in its kind's color.
func (t *Theme) SectionBody(k section.Kind) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.SectionColor(k))
}

// SectionBox styles the live panel border for a section kind.
func (t *Theme) SectionBox(k section.Kind) lipgloss.Style {
	return t.SectionPanel.BorderForeground(t.SectionColor(k))
}
