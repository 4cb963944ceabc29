// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package section

import "fmt"

// EventType is the kind of classifier output.
type EventType int

const (
	EventPlainText EventType = iota
	EventSectionStart
	EventSectionAppend
	EventSectionEnd
)

func (t EventType) String() string {
	switch t {
	case EventPlainText:
		return "PlainText"
	case EventSectionStart:
		return "SectionStart"
	case EventSectionAppend:
		return "SectionAppend"
	case EventSectionEnd:
		return "SectionEnd"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a single classification result.
//
// Text holds the chunk text for PlainText and SectionAppend, and the full
// accumulated section content for SectionEnd. Kind is empty for PlainText.
type Event struct {
	Type EventType
	Kind Kind
	Text string

	// Recovered is set on a SectionEnd synthesized by Close because the
	// model never closed its tag.
	Recovered bool
}

func (e Event) String() string {
	switch e.Type {
	case EventPlainText:
		return fmt.Sprintf("PlainText(%q)", e.Text)
	case EventSectionStart:
		return fmt.Sprintf("SectionStart(%s)", e.Kind)
	case EventSectionAppend:
		return fmt.Sprintf("SectionAppend(%s, %q)", e.Kind, e.Text)
	case EventSectionEnd:
		if e.Recovered {
			return fmt.Sprintf("SectionEnd(%s, %q, recovered)", e.Kind, e.Text)
		}
		return fmt.Sprintf("SectionEnd(%s, %q)", e.Kind, e.Text)
	default:
		return e.Type.String()
	}
}

// PlainText builds a plain-text event.
func PlainText(text string) Event {
	return Event{Type: EventPlainText, Text: text}
}

// SectionStart builds a section-start event.
func SectionStart(k Kind) Event {
	return Event{Type: EventSectionStart, Kind: k}
}

// SectionAppend builds a section-append event.
func SectionAppend(k Kind, text string) Event {
	return Event{Type: EventSectionAppend, Kind: k, Text: text}
}

// SectionEnd builds a section-end event carrying the section content.
func SectionEnd(k Kind, content string) Event {
	return Event{Type: EventSectionEnd, Kind: k, Text: content}
}
