// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/reasonchat/internal/codeblock"
	"github.com/jeranaias/reasonchat/internal/conversation"
	"github.com/jeranaias/reasonchat/internal/section"
	"github.com/jeranaias/reasonchat/internal/util"
)

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("transcript has no entries")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// EntryKind identifies a transcript entry.
type EntryKind string

const (
	EntryUser      EntryKind = "user"
	EntryAssistant EntryKind = "assistant"
	EntrySection   EntryKind = "section"
	EntryInfo      EntryKind = "info"
	EntryError     EntryKind = "error"
)

// Entry is one block of the chat log.
type Entry struct {
	Kind      EntryKind    `json:"kind"`
	Section   section.Kind `json:"section,omitempty"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
}

// Label is the prefix shown in front of the entry.
func (e Entry) Label() string {
	switch e.Kind {
	case EntryUser:
		return "You"
	case EntryAssistant:
		return "Assistant"
	case EntrySection:
		return e.Section.Title()
	case EntryError:
		return "Error"
	default:
		return "Info"
	}
}

// Transcript is an ordered chat log. It is safe for concurrent use.
type Transcript struct {
	mu      sync.Mutex
	title   string
	model   string
	created time.Time
	entries []Entry
}

// NewTranscript creates an empty transcript.
func NewTranscript(title, model string) *Transcript {
	return &Transcript{title: title, model: model, created: time.Now()}
}

// Add appends an entry. Entries with blank text are ignored.
func (t *Transcript) Add(kind EntryKind, text string) {
	t.add(Entry{Kind: kind, Text: text})
}

// AddSection appends a finished reasoning section.
func (t *Transcript) AddSection(k section.Kind, content string) {
	t.add(Entry{Kind: EntrySection, Section: k, Text: content})
}

func (t *Transcript) add(e Entry) {
	if strings.TrimSpace(e.Text) == "" {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()
}

// Entries returns a copy of the entries.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Reset drops all entries.
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.entries = nil
	t.created = time.Now()
	t.mu.Unlock()
}

// FromMessages builds a transcript from stored messages. The system
// prompt is left out.
func FromMessages(title, model string, msgs []conversation.Message) *Transcript {
	t := NewTranscript(title, model)
	for _, m := range msgs {
		e := Entry{Text: m.Content, Timestamp: m.Timestamp}
		switch m.Role {
		case conversation.RoleUser:
			e.Kind = EntryUser
		case conversation.RoleAssistant:
			e.Kind = EntryAssistant
		default:
			continue
		}
		t.add(e)
	}
	if len(msgs) > 0 && !msgs[0].Timestamp.IsZero() {
		t.created = msgs[0].Timestamp
	}
	return t
}

// =============================================================================
// EXPORTERS
// =============================================================================

// Exporter renders a transcript.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)
	FileExtension() string
}

// ForPath returns the exporter matching the extension of path.
func ForPath(path string) Exporter {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return MarkdownExporter{}
	case ".json":
		return JSONExporter{}
	default:
		return TextExporter{}
	}
}

// WriteFile exports t to path in the format implied by its extension.
func WriteFile(t *Transcript, path string) error {
	data, err := ForPath(path).Export(t)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// DefaultFilename suggests a file name for a chat log saved now. title,
// when set, is sanitized into the name.
func DefaultFilename(title, ext string) string {
	if ext == "" {
		ext = ".txt"
	}
	stamp := time.Now().Format("20060102_150405")
	if strings.TrimSpace(title) == "" {
		return "chat_log_" + stamp + ext
	}
	return "chat_log_" + sanitizeFilename(title) + "_" + stamp + ext
}

// SaveArtifact writes a code block's body to path.
func SaveArtifact(a codeblock.Artifact, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("no file name given")
	}
	if err := util.AtomicWriteFile(path, []byte(a.Body), 0644); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	const maxLen = 50
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "chat"
	}
	return b.String()
}

// snapshot returns the header fields and entries under the lock.
func (t *Transcript) snapshot() (title, model string, created time.Time, entries []Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries = make([]Entry, len(t.entries))
	copy(entries, t.entries)
	return t.title, t.model, t.created, entries
}
