// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/section"
	"github.com/jeranaias/reasonchat/internal/ui/styles"
)

// =============================================================================
// RENDERING
// =============================================================================

// renderer turns transcript blocks into styled text for one width and theme.
type renderer struct {
	theme    *styles.Theme
	width    int
	markdown *glamour.TermRenderer
}

// newMarkdown builds the glamour renderer used for finished replies.
func newMarkdown(theme *styles.Theme, width int) (*glamour.TermRenderer, error) {
	style := theme.Name()
	if theme.ColorProfile == termenv.Ascii {
		style = "notty"
	}
	return glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-2, 20)),
	)
}

// key identifies the output of this renderer for caching.
func (r renderer) key() string {
	return fmt.Sprintf("%s/%d", r.theme.Name(), r.width)
}

func (r renderer) wrap(style lipgloss.Style, text string) string {
	return style.Width(max(r.width, 10)).Render(text)
}

// Render draws every finished block.
func (r renderer) Render(t *Transcript) string {
	parts := make([]string, 0, len(t.blocks))
	for _, b := range t.blocks {
		if s := r.block(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (r renderer) block(b *block) string {
	th := r.theme
	text := b.text.String()

	switch b.kind {
	case blockUser:
		return th.UserLabel.Render("You:") + "\n" + r.wrap(th.Body, text)

	case blockAssistant:
		if strings.TrimSpace(text) == "" {
			return ""
		}
		return th.AssistantLabel.Render("Assistant:") + "\n" + r.assistantBody(b)

	case blockSection:
		title := th.SectionTitle(b.section).Render(b.section.Title() + ":")
		if b.recovered {
			title += th.HeaderDim.Render(" (unterminated)")
		}
		return title + "\n" + r.wrap(th.SectionBody(b.section), strings.TrimSpace(text))

	case blockError:
		return r.wrap(th.ErrorText, text)

	default:
		return r.wrap(th.InfoText, text)
	}
}

// assistantBody renders plain text while streaming and markdown once the
// turn is over.
func (r renderer) assistantBody(b *block) string {
	text := strings.TrimSpace(b.text.String())
	if !b.final || r.markdown == nil {
		return r.wrap(r.theme.Body, text)
	}
	if b.renderKey == r.key() {
		return b.rendered
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return r.wrap(r.theme.Body, text)
	}
	b.rendered = strings.Trim(out, "\n")
	b.renderKey = r.key()
	return b.rendered
}

// panelHeight maps the configured font size onto the number of content
// lines in the live section panel.
func panelHeight(fontSize int) int {
	return config.ClampFontSize(fontSize) / 2
}

// Panel draws the live section box showing the last height lines of
// content. It returns "" when no section is open.
func (r renderer) Panel(kind section.Kind, content string, height int) string {
	th := r.theme
	inner := max(r.width-4, 10)

	wrapped := lipgloss.NewStyle().Width(inner).Render(strings.TrimLeft(content, "\n"))
	lines := strings.Split(wrapped, "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}

	title := th.SectionTitle(kind).Render(kind.DisplayTitle())
	body := th.SectionBody(kind).Render(strings.Join(lines, "\n"))
	return th.SectionBox(kind).Width(max(r.width-2, 12)).Render(title + "\n" + body)
}
