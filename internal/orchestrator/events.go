// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"github.com/jeranaias/reasonchat/internal/codeblock"
	"github.com/jeranaias/reasonchat/internal/conversation"
	"github.com/jeranaias/reasonchat/internal/ollama"
	"github.com/jeranaias/reasonchat/internal/section"
)

// Event is emitted by a running turn.
type Event interface {
	isEvent()
}

// SectionEvent carries a classifier result.
type SectionEvent struct {
	section.Event
}

// ArtifactEvent carries a completed code block.
type ArtifactEvent struct {
	Artifact codeblock.Artifact
}

// NoticeLevel is the severity of a NoticeEvent.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

func (l NoticeLevel) String() string {
	if l == NoticeError {
		return "error"
	}
	return "info"
}

// NoticeEvent is a status line for the user. Err is set for failures.
type NoticeEvent struct {
	Level   NoticeLevel
	Message string
	Err     error
}

// CompletedEvent ends a successful turn.
type CompletedEvent struct {
	Response string
	Stats    *ollama.StreamStats
	// Added holds the messages committed to the history by this turn.
	Added []conversation.Message
}

func (SectionEvent) isEvent()   {}
func (ArtifactEvent) isEvent()  {}
func (NoticeEvent) isEvent()    {}
func (CompletedEvent) isEvent() {}

// Notice texts shown to the user.
const (
	MsgNoResponse = "No response received. The model might be processing or there might be an issue."
	MsgCancelled  = "Response cancelled."
	MsgDiscarded  = "Chat was cleared while the reply was streaming; the reply was not saved."
)
