// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/reasonchat/internal/codeblock"
	"github.com/jeranaias/reasonchat/internal/export"
	"github.com/jeranaias/reasonchat/internal/orchestrator"
	"github.com/jeranaias/reasonchat/internal/section"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

type blockKind int

const (
	blockUser blockKind = iota
	blockAssistant
	blockSection
	blockInfo
	blockError
)

// block is one rendered region of the chat.
type block struct {
	kind      blockKind
	section   section.Kind
	text      strings.Builder
	recovered bool
	// final is set once the turn that produced the block has ended.
	final bool

	// Cached markdown rendering of a final assistant block.
	rendered  string
	renderKey string
}

// Transcript is the chat screen's display and artifact sink. It is only
// touched from the Bubble Tea update loop.
type Transcript struct {
	blocks []*block
	// current receives AppendPlain until a section or notice interrupts it.
	current *block
	// live is the section currently streaming into the panel.
	live *block

	artifacts []codeblock.Artifact
	last      *orchestrator.CompletedEvent
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

var (
	_ orchestrator.DisplaySink    = (*Transcript)(nil)
	_ orchestrator.ArtifactSink   = (*Transcript)(nil)
	_ orchestrator.CompletionSink = (*Transcript)(nil)
)

func (t *Transcript) push(kind blockKind, text string) *block {
	b := &block{kind: kind}
	b.text.WriteString(text)
	t.blocks = append(t.blocks, b)
	return b
}

// AddUser appends the user's message.
func (t *Transcript) AddUser(text string) {
	t.current = nil
	t.push(blockUser, text).final = true
}

// AppendPlain adds assistant text outside any section.
func (t *Transcript) AppendPlain(text string) {
	if t.current == nil {
		t.current = t.push(blockAssistant, "")
	}
	t.current.text.WriteString(text)
}

// BeginSection opens the live panel for kind.
func (t *Transcript) BeginSection(kind section.Kind) {
	t.current = nil
	t.live = &block{kind: blockSection, section: kind}
}

// AppendToSection streams text into the live panel.
func (t *Transcript) AppendToSection(kind section.Kind, text string) {
	if t.live == nil || t.live.section != kind {
		t.BeginSection(kind)
	}
	t.live.text.WriteString(text)
}

// EndSection closes the live panel and moves the finished section into
// the transcript.
func (t *Transcript) EndSection(kind section.Kind, content string, recovered bool) {
	t.live = nil
	t.current = nil
	b := t.push(blockSection, content)
	b.section = kind
	b.recovered = recovered
}

// NotifyError shows an error line.
func (t *Transcript) NotifyError(message string) {
	t.current = nil
	t.push(blockError, message).final = true
}

// NotifyInfo shows an informational line.
func (t *Transcript) NotifyInfo(message string) {
	t.current = nil
	t.push(blockInfo, message).final = true
}

// OnArtifact queues a code block for preview.
func (t *Transcript) OnArtifact(a codeblock.Artifact) {
	t.artifacts = append(t.artifacts, a)
}

// Complete records the finished turn.
func (t *Transcript) Complete(ev orchestrator.CompletedEvent) {
	t.last = &ev
}

// Finish marks every block final once a turn's event stream is closed.
func (t *Transcript) Finish() {
	t.current = nil
	t.live = nil
	for _, b := range t.blocks {
		b.final = true
	}
}

// Live returns the open section, if any.
func (t *Transcript) Live() (section.Kind, string, bool) {
	if t.live == nil {
		return "", "", false
	}
	return t.live.section, t.live.text.String(), true
}

// PendingArtifacts returns the number of queued code blocks.
func (t *Transcript) PendingArtifacts() int {
	return len(t.artifacts)
}

// NextArtifact removes and returns the oldest queued code block.
func (t *Transcript) NextArtifact() (codeblock.Artifact, bool) {
	if len(t.artifacts) == 0 {
		return codeblock.Artifact{}, false
	}
	a := t.artifacts[0]
	t.artifacts = t.artifacts[1:]
	return a, true
}

// LastCompleted returns the most recent successful turn.
func (t *Transcript) LastCompleted() *orchestrator.CompletedEvent {
	return t.last
}

// Len returns the number of finished blocks.
func (t *Transcript) Len() int {
	return len(t.blocks)
}

// Reset empties the transcript.
func (t *Transcript) Reset() {
	*t = Transcript{}
}

// Export converts the transcript into a chat log for saving.
func (t *Transcript) Export(title, model string) *export.Transcript {
	out := export.NewTranscript(title, model)
	for _, b := range t.blocks {
		text := b.text.String()
		switch b.kind {
		case blockUser:
			out.Add(export.EntryUser, text)
		case blockAssistant:
			out.Add(export.EntryAssistant, text)
		case blockSection:
			out.AddSection(b.section, text)
		case blockInfo:
			out.Add(export.EntryInfo, text)
		case blockError:
			out.Add(export.EntryError, text)
		}
	}
	return out
}
