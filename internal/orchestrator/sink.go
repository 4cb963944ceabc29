// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"github.com/jeranaias/reasonchat/internal/codeblock"
	"github.com/jeranaias/reasonchat/internal/section"
)

// DisplaySink receives display updates tagged by region.
type DisplaySink interface {
	AppendPlain(text string)
	BeginSection(kind section.Kind)
	AppendToSection(kind section.Kind, text string)
	// EndSection finalizes the open section with its full content.
	// recovered is true when the model never closed the tag.
	EndSection(kind section.Kind, content string, recovered bool)
	NotifyError(message string)
	NotifyInfo(message string)
}

// ArtifactSink receives completed code blocks.
type ArtifactSink interface {
	OnArtifact(a codeblock.Artifact)
}

// CompletionSink is optionally implemented by a DisplaySink that wants the
// final reply and statistics.
type CompletionSink interface {
	Complete(ev CompletedEvent)
}

// Deliver hands ev to the sinks. A nil artifacts sink drops artifacts.
func Deliver(ev Event, display DisplaySink, artifacts ArtifactSink) {
	switch e := ev.(type) {
	case SectionEvent:
		switch e.Type {
		case section.EventPlainText:
			display.AppendPlain(e.Text)
		case section.EventSectionStart:
			display.BeginSection(e.Kind)
		case section.EventSectionAppend:
			display.AppendToSection(e.Kind, e.Text)
		case section.EventSectionEnd:
			display.EndSection(e.Kind, e.Text, e.Recovered)
		}
	case ArtifactEvent:
		if artifacts != nil {
			artifacts.OnArtifact(e.Artifact)
		}
	case NoticeEvent:
		if e.Level == NoticeError {
			display.NotifyError(e.Message)
		} else {
			display.NotifyInfo(e.Message)
		}
	case CompletedEvent:
		if c, ok := display.(CompletionSink); ok {
			c.Complete(e)
		}
	}
}
