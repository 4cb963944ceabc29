// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package section

import "strings"

// maxMarkerLen is the length of the longest tag in the vocabulary.
var maxMarkerLen = func() int {
	n := 0
	for _, k := range Kinds {
		if l := len(k.EndMarker()); l > n {
			n = l
		}
	}
	return n
}()

// feedBuffered scans pending text positionally, applying every complete
// marker in order and holding back a tail that may be a split marker.
func (c *Classifier) feedBuffered(chunk string) []Event {
	var events []Event
	c.pending += chunk

	for {
		idx, marker, k, isStart := earliestMarker(c.pending)
		if idx < 0 {
			break
		}
		events = c.route(events, c.pending[:idx])
		events = c.applyMarker(events, k, isStart)
		c.pending = c.pending[idx+len(marker):]
	}

	keep := partialMarkerLen(c.pending)
	events = c.route(events, c.pending[:len(c.pending)-keep])
	c.pending = c.pending[len(c.pending)-keep:]
	return events
}

func (c *Classifier) applyMarker(events []Event, k Kind, isStart bool) []Event {
	switch {
	case isStart && k == c.open:
		// Re-opening the open kind is a no-op.
	case isStart:
		if c.open != "" {
			events = append(events, c.end())
		}
		events = append(events, c.start(k))
	case c.open != "":
		events = append(events, c.end())
	}
	// A stray end marker while Idle is dropped.
	return events
}

// earliestMarker finds the first tag of any kind in s.
func earliestMarker(s string) (idx int, marker string, kind Kind, isStart bool) {
	idx = -1
	for _, k := range Kinds {
		for _, start := range []bool{true, false} {
			m := k.EndMarker()
			if start {
				m = k.StartMarker()
			}
			if i := strings.Index(s, m); i >= 0 && (idx < 0 || i < idx) {
				idx, marker, kind, isStart = i, m, k, start
			}
		}
	}
	return idx, marker, kind, isStart
}

// partialMarkerLen returns the length of the longest suffix of s that is a
// proper prefix of some marker.
func partialMarkerLen(s string) int {
	from := len(s) - maxMarkerLen + 1
	if from < 0 {
		from = 0
	}
	for i := from; i < len(s); i++ {
		if s[i] == '<' && isMarkerPrefix(s[i:]) {
			return len(s) - i
		}
	}
	return 0
}

func isMarkerPrefix(s string) bool {
	for _, k := range Kinds {
		if strings.HasPrefix(k.StartMarker(), s) || strings.HasPrefix(k.EndMarker(), s) {
			return true
		}
	}
	return false
}
