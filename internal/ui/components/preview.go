// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/reasonchat/internal/codeblock"
	"github.com/jeranaias/reasonchat/internal/export"
	"github.com/jeranaias/reasonchat/internal/ui/styles"
)

// =============================================================================
// ARTIFACT PREVIEW
// =============================================================================

// PreviewKeys are the bindings active while a preview is open.
type PreviewKeys struct {
	Copy  key.Binding
	Save  key.Binding
	Close key.Binding
}

// DefaultPreviewKeys returns the preview bindings.
func DefaultPreviewKeys() PreviewKeys {
	return PreviewKeys{
		Copy:  key.NewBinding(key.WithKeys("c", "y"), key.WithHelp("c", "copy")),
		Save:  key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
		Close: key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "close")),
	}
}

// Preview shows one code artifact with copy and save actions.
type Preview struct {
	artifact codeblock.Artifact
	theme    *styles.Theme
	keys     PreviewKeys

	viewport viewport.Model
	input    textinput.Model
	saving   bool
	closed   bool
	status   string
	statusOK bool

	width, height int

	// Dir is where relative save paths are resolved.
	Dir string
	// CopyFunc writes to the system clipboard.
	CopyFunc func(string) error
	// SaveFunc writes the artifact to a path.
	SaveFunc func(codeblock.Artifact, string) error
}

// NewPreview creates a preview sized to width x height.
func NewPreview(a codeblock.Artifact, theme *styles.Theme, width, height int) *Preview {
	in := textinput.New()
	in.Prompt = "Save as: "
	in.CharLimit = 512

	p := &Preview{
		artifact: a,
		theme:    theme,
		keys:     DefaultPreviewKeys(),
		input:    in,
		CopyFunc: clipboard.WriteAll,
		SaveFunc: export.SaveArtifact,
	}
	p.SetSize(width, height)
	return p
}

// Artifact returns the previewed artifact.
func (p *Preview) Artifact() codeblock.Artifact {
	return p.artifact
}

// Closed reports whether the user dismissed the preview.
func (p *Preview) Closed() bool {
	return p.closed
}

// Saving reports whether the save prompt is open.
func (p *Preview) Saving() bool {
	return p.saving
}

// Status returns the last action result.
func (p *Preview) Status() string {
	return p.status
}

// SetTheme re-renders the code with another theme.
func (p *Preview) SetTheme(theme *styles.Theme) {
	p.theme = theme
	p.viewport.SetContent(RenderCode(p.artifact.Body, p.artifact.Language, theme))
}

// SetSize fits the preview into the given area.
func (p *Preview) SetSize(width, height int) {
	p.width, p.height = width, height
	// Border, title, status and help lines.
	vw, vh := max(width-4, 10), max(height-6, 3)
	p.viewport = viewport.New(vw, vh)
	p.viewport.SetContent(RenderCode(p.artifact.Body, p.artifact.Language, p.theme))
	p.input.Width = max(vw-len(p.input.Prompt)-1, 10)
}

// Update handles a message while the preview has focus.
func (p *Preview) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		if p.saving {
			p.input, cmd = p.input.Update(msg)
		} else {
			p.viewport, cmd = p.viewport.Update(msg)
		}
		return cmd
	}

	if p.saving {
		switch keyMsg.Type {
		case tea.KeyEnter:
			p.save(strings.TrimSpace(p.input.Value()))
			return nil
		case tea.KeyEsc:
			p.saving = false
			p.input.Blur()
			return nil
		}
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(keyMsg, p.keys.Close):
		p.closed = true
		return nil
	case key.Matches(keyMsg, p.keys.Copy):
		p.copy()
		return nil
	case key.Matches(keyMsg, p.keys.Save):
		p.saving = true
		p.input.SetValue(p.artifact.SuggestedName())
		p.input.CursorEnd()
		return p.input.Focus()
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return cmd
}

func (p *Preview) copy() {
	if err := p.CopyFunc(p.artifact.Body); err != nil {
		p.setStatus("Copy failed: "+err.Error(), false)
		return
	}
	p.setStatus("Code copied to clipboard", true)
}

func (p *Preview) save(name string) {
	if name == "" {
		p.setStatus("Enter a file name", false)
		return
	}
	path := name
	if !filepath.IsAbs(path) && p.Dir != "" {
		path = filepath.Join(p.Dir, path)
	}
	if err := p.SaveFunc(p.artifact, path); err != nil {
		p.setStatus(err.Error(), false)
		return
	}
	p.saving = false
	p.input.Blur()
	p.setStatus("File saved as "+path, true)
}

func (p *Preview) setStatus(s string, ok bool) {
	p.status, p.statusOK = s, ok
}

// View renders the preview box.
func (p *Preview) View() string {
	t := p.theme
	var b strings.Builder
	b.WriteString(t.ModalTitle.Render(p.artifact.Title()))
	if p.artifact.Language != "" {
		b.WriteString(" " + t.HeaderDim.Render("("+p.artifact.Language+")"))
	}
	b.WriteString("\n")
	b.WriteString(p.viewport.View())
	b.WriteString("\n")

	switch {
	case p.saving:
		b.WriteString(p.input.View())
	case p.status != "":
		style := t.ErrorText
		if p.statusOK {
			style = t.InfoText
		}
		b.WriteString(style.Render(p.status))
	default:
		b.WriteString(" ")
	}
	b.WriteString("\n")
	b.WriteString(p.helpLine())

	return t.Modal.Width(max(p.width-2, 10)).Render(b.String())
}

func (p *Preview) helpLine() string {
	t := p.theme
	if p.saving {
		return t.StatusKey.Render("enter") + t.StatusDesc.Render(" save  ") +
			t.StatusKey.Render("esc") + t.StatusDesc.Render(" cancel")
	}
	var parts []string
	for _, b := range []key.Binding{p.keys.Copy, p.keys.Save, p.keys.Close} {
		h := b.Help()
		parts = append(parts, t.StatusKey.Render(h.Key)+t.StatusDesc.Render(" "+h.Desc))
	}
	parts = append(parts, t.StatusKey.Render("↑/↓")+t.StatusDesc.Render(" scroll"))
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, "  "))
}
