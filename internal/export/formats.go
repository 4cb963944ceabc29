// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PLAIN TEXT
// =============================================================================

// TextExporter writes the chat log the way it is displayed.
type TextExporter struct{}

func (TextExporter) FileExtension() string { return ".txt" }

func (TextExporter) Export(t *Transcript) ([]byte, error) {
	_, _, _, entries := t.snapshot()
	if len(entries) == 0 {
		return nil, ErrEmptyTranscript
	}

	var sb strings.Builder
	for _, e := range entries {
		switch e.Kind {
		case EntrySection:
			fmt.Fprintf(&sb, "%s:\n%s\n\n", e.Label(), strings.TrimSpace(e.Text))
		default:
			fmt.Fprintf(&sb, "%s: %s\n\n", e.Label(), strings.TrimSpace(e.Text))
		}
	}
	return []byte(strings.TrimRight(sb.String(), "\n") + "\n"), nil
}

// =============================================================================
// MARKDOWN
// =============================================================================

// MarkdownExporter writes a Markdown document with one heading per entry.
type MarkdownExporter struct{}

func (MarkdownExporter) FileExtension() string { return ".md" }

func (MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	title, model, created, entries := t.snapshot()
	if len(entries) == 0 {
		return nil, ErrEmptyTranscript
	}
	if title == "" {
		title = "Chat Log"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))
	if model != "" {
		fmt.Fprintf(&sb, "- **Model**: %s\n", model)
	}
	fmt.Fprintf(&sb, "- **Started**: %s\n", created.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- **Entries**: %d\n\n---\n\n", len(entries))

	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		switch e.Kind {
		case EntrySection:
			fmt.Fprintf(&sb, "> **%s**\n>\n", e.Label())
			for _, line := range strings.Split(text, "\n") {
				sb.WriteString(strings.TrimRight("> "+line, " ") + "\n")
			}
			sb.WriteString("\n")
		case EntryInfo, EntryError:
			fmt.Fprintf(&sb, "*%s: %s*\n\n", e.Label(), text)
		default:
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n%s\n\n", e.Label(), e.Timestamp.Format("15:04:05"), text)
		}
	}
	return []byte(strings.TrimRight(sb.String(), "\n") + "\n"), nil
}

// escapeMarkdown escapes characters with meaning in a heading.
func escapeMarkdown(s string) string {
	return strings.NewReplacer(
		"\\", "\\\\", "*", "\\*", "_", "\\_", "`", "\\`",
		"#", "\\#", "[", "\\[", "]", "\\]", "\n", " ",
	).Replace(s)
}

// =============================================================================
// JSON
// =============================================================================

// JSONExporter writes the transcript as a JSON document.
type JSONExporter struct{}

func (JSONExporter) FileExtension() string { return ".json" }

type jsonTranscript struct {
	Title   string    `json:"title,omitempty"`
	Model   string    `json:"model,omitempty"`
	Created time.Time `json:"created"`
	Entries []Entry   `json:"entries"`
}

func (JSONExporter) Export(t *Transcript) ([]byte, error) {
	title, model, created, entries := t.snapshot()
	if len(entries) == 0 {
		return nil, ErrEmptyTranscript
	}
	data, err := json.MarshalIndent(jsonTranscript{title, model, created, entries}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return append(data, '\n'), nil
}
