// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/jeranaias/reasonchat/internal/codeblock"
	"github.com/jeranaias/reasonchat/internal/orchestrator"
	"github.com/jeranaias/reasonchat/internal/section"
	"github.com/jeranaias/reasonchat/internal/ui/styles"
)

// =============================================================================
// CONSOLE SINK
// =============================================================================

// consoleSink prints a turn to a terminal or pipe. Sections are printed
// as "<Title>:\n<content>" once they end. With markdown set, plain text is
// held back and rendered with glamour when the turn completes.
type consoleSink struct {
	out   io.Writer
	theme *styles.Theme
	// color enables styled output.
	color bool
	// markdown renders the reply with glamour at the end.
	markdown *glamour.TermRenderer

	plain     strings.Builder
	artifacts []codeblock.Artifact
	failed    bool
}

var (
	_ orchestrator.DisplaySink    = (*consoleSink)(nil)
	_ orchestrator.ArtifactSink   = (*consoleSink)(nil)
	_ orchestrator.CompletionSink = (*consoleSink)(nil)
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newConsoleSink styles output only when out is a terminal.
func newConsoleSink(out io.Writer, themeName string) *consoleSink {
	s := &consoleSink{out: out, theme: styles.NewTheme(themeName)}
	if isTerminal(out) {
		s.color = true
		width := 80
		if f, ok := out.(*os.File); ok {
			if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
				width = w
			}
		}
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(s.theme.Name()),
			glamour.WithWordWrap(width-4),
		)
		if err == nil {
			s.markdown = md
		}
	}
	return s
}

func (s *consoleSink) AppendPlain(text string) {
	s.plain.WriteString(text)
	if s.markdown == nil {
		fmt.Fprint(s.out, text)
	}
}

// BeginSection prints nothing; the section appears once it ends.
func (s *consoleSink) BeginSection(kind section.Kind) {
	s.flushPlain()
}

func (s *consoleSink) AppendToSection(kind section.Kind, text string) {}

func (s *consoleSink) EndSection(kind section.Kind, content string, recovered bool) {
	title := kind.Title() + ":"
	body := strings.TrimSpace(content)
	if s.color {
		title = s.theme.SectionTitle(kind).Render(title)
		body = s.theme.SectionBody(kind).Render(body)
	}
	fmt.Fprintf(s.out, "\n%s\n%s\n\n", title, body)
}

func (s *consoleSink) NotifyError(message string) {
	s.failed = true
	s.flushPlain()
	if s.color {
		message = s.theme.ErrorText.Render(message)
	}
	fmt.Fprintln(s.out, message)
}

func (s *consoleSink) NotifyInfo(message string) {
	s.flushPlain()
	if s.color {
		message = s.theme.InfoText.Render(message)
	}
	fmt.Fprintln(s.out, message)
}

func (s *consoleSink) OnArtifact(a codeblock.Artifact) {
	s.artifacts = append(s.artifacts, a)
}

// Complete renders any held-back markdown and ends the reply line.
func (s *consoleSink) Complete(ev orchestrator.CompletedEvent) {
	s.flushPlain()
	if s.markdown == nil && !strings.HasSuffix(ev.Response, "\n") {
		fmt.Fprintln(s.out)
	}
}

// flushPlain renders held-back plain text when markdown is enabled.
func (s *consoleSink) flushPlain() {
	if s.markdown == nil {
		return
	}
	text := strings.TrimSpace(s.plain.String())
	s.plain.Reset()
	if text == "" {
		return
	}
	rendered, err := s.markdown.Render(text)
	if err != nil {
		rendered = text + "\n"
	}
	fmt.Fprint(s.out, rendered)
}

// reset prepares the sink for another turn.
func (s *consoleSink) reset() {
	s.plain.Reset()
	s.artifacts = nil
	s.failed = false
}
