// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package section

import "strings"

// Classifier is the incremental section state machine. It is not safe for
// concurrent use; one stream owns one Classifier.
type Classifier struct {
	policy  Policy
	open    Kind // empty while Idle
	content strings.Builder
	pending string // PolicyBuffered holdback
}

// New creates a Classifier in the Idle state.
func New(policy Policy) *Classifier {
	return &Classifier{policy: policy}
}

// Current returns the open section kind, or false while Idle.
func (c *Classifier) Current() (Kind, bool) {
	return c.open, c.open != ""
}

// Feed classifies one chunk and returns the resulting events in order.
func (c *Classifier) Feed(chunk string) []Event {
	if chunk == "" {
		return nil
	}
	if c.policy == PolicyBuffered {
		return c.feedBuffered(chunk)
	}
	return c.feedChunk(chunk)
}

// Close ends the stream. Held-back text is released and an open section is
// finalized with a Recovered SectionEnd.
func (c *Classifier) Close() []Event {
	var events []Event
	if c.pending != "" {
		events = c.route(events, c.pending)
		c.pending = ""
	}
	if c.open != "" {
		end := c.end()
		end.Recovered = true
		events = append(events, end)
	}
	return events
}

// =============================================================================
// PER-CHUNK POLICY
// =============================================================================

// feedChunk applies exactly one transition per chunk. Priority is a start
// marker for a kind other than the open one, then any end marker, then
// plain routing. Text before the chosen marker belongs to the old state and
// text after it to the new one.
func (c *Classifier) feedChunk(chunk string) []Event {
	var events []Event

	if k, idx, ok := c.findStart(chunk); ok {
		prefix := stripMarkers(chunk[:idx])
		suffix := stripMarkers(chunk[idx+len(k.StartMarker()):])
		events = c.route(events, prefix)
		if c.open != "" {
			events = append(events, c.end())
		}
		events = append(events, c.start(k))
		return c.route(events, suffix)
	}

	if c.open != "" {
		if idx, marker, ok := findEnd(chunk); ok {
			events = c.route(events, stripMarkers(chunk[:idx]))
			events = append(events, c.end())
			return c.route(events, stripMarkers(chunk[idx+len(marker):]))
		}
	}

	return c.route(events, stripMarkers(chunk))
}

// findStart locates the earliest start marker for a kind that is not
// already open.
func (c *Classifier) findStart(chunk string) (Kind, int, bool) {
	best, bestIdx := Kind(""), -1
	for _, k := range Kinds {
		if k == c.open {
			continue
		}
		if idx := strings.Index(chunk, k.StartMarker()); idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			best, bestIdx = k, idx
		}
	}
	return best, bestIdx, bestIdx >= 0
}

// findEnd locates the earliest end marker of any kind.
func findEnd(chunk string) (int, string, bool) {
	bestIdx, bestMarker := -1, ""
	for _, k := range Kinds {
		m := k.EndMarker()
		if idx := strings.Index(chunk, m); idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			bestIdx, bestMarker = idx, m
		}
	}
	return bestIdx, bestMarker, bestIdx >= 0
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

func (c *Classifier) start(k Kind) Event {
	c.open = k
	c.content.Reset()
	return SectionStart(k)
}

func (c *Classifier) end() Event {
	ev := SectionEnd(c.open, c.content.String())
	c.open = ""
	c.content.Reset()
	return ev
}

// route sends text to the open section or out as plain text.
func (c *Classifier) route(events []Event, text string) []Event {
	if text == "" {
		return events
	}
	if c.open != "" {
		c.content.WriteString(text)
		return append(events, SectionAppend(c.open, text))
	}
	return append(events, PlainText(text))
}

// markerReplacer removes every tag literal from displayed text.
var markerReplacer = func() *strings.Replacer {
	var pairs []string
	for _, k := range Kinds {
		pairs = append(pairs, k.StartMarker(), "", k.EndMarker(), "")
	}
	return strings.NewReplacer(pairs...)
}()

func stripMarkers(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return markerReplacer.Replace(s)
}
