// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/reasonchat/internal/ui/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// Highlight returns code with ANSI syntax highlighting for the theme. The
// lexer is chosen from language, or guessed from the code. On any failure
// the code is returned unchanged.
func Highlight(code, language string, theme *styles.Theme) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if !theme.IsDark() {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get(formatterFor(theme.ColorProfile))
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

func formatterFor(profile termenv.Profile) string {
	switch profile {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal16"
	default:
		return "noop"
	}
}

// RenderCode highlights code and prefixes line numbers.
func RenderCode(code, language string, theme *styles.Theme) string {
	code = strings.TrimRight(code, "\n")
	lines := strings.Split(strings.TrimRight(Highlight(code, language, theme), "\n"), "\n")

	lineNum := lipgloss.NewStyle().
		Foreground(theme.Palette.TextMuted).
		Width(len(strconv.Itoa(len(lines)))).
		Align(lipgloss.Right).
		MarginRight(1)

	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = lineNum.Render(strconv.Itoa(i+1)) + line
	}
	return strings.Join(out, "\n")
}
