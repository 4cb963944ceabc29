// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package section

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind identifies a reasoning section.
type Kind string

const (
	KindThinking     Kind = "thinking"
	KindAnalyzing    Kind = "analyzing"
	KindImplementing Kind = "implementing"
)

// Kinds lists every section kind in marker-precedence order.
var Kinds = []Kind{KindThinking, KindAnalyzing, KindImplementing}

var titleCaser = cases.Title(language.English)

// StartMarker returns the opening tag, e.g. "<thinking>".
func (k Kind) StartMarker() string {
	return "<" + string(k) + ">"
}

// EndMarker returns the closing tag, e.g. "</thinking>".
func (k Kind) EndMarker() string {
	return "</" + string(k) + ">"
}

// Title returns the capitalized kind name used when a finished section is
// written into the transcript ("Thinking").
func (k Kind) Title() string {
	return titleCaser.String(string(k))
}

// DisplayTitle returns the heading shown while the section is streaming.
func (k Kind) DisplayTitle() string {
	switch k {
	case KindThinking:
		return "Thought Process"
	case KindAnalyzing:
		return "Critical Analysis"
	case KindImplementing:
		return "Implementation"
	default:
		return k.Title()
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts a kind name (case-insensitive) into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown section kind %q", s)
	}
	return k, nil
}

// =============================================================================
// BOUNDARY POLICY
// =============================================================================

// Policy selects how markers that straddle chunk boundaries are treated.
type Policy int

const (
	// PolicyPerChunk detects markers only within a single chunk.
	PolicyPerChunk Policy = iota
	// PolicyBuffered detects markers across chunk boundaries.
	PolicyBuffered
)

// String returns the config name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyPerChunk:
		return "per_chunk"
	case PolicyBuffered:
		return "buffered"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a config value into a Policy. The empty string
// selects PolicyPerChunk.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per_chunk", "per-chunk", "perchunk":
		return PolicyPerChunk, nil
	case "buffered":
		return PolicyBuffered, nil
	default:
		return PolicyPerChunk, fmt.Errorf("unknown boundary policy %q (want per_chunk or buffered)", s)
	}
}
