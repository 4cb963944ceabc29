// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package codeblock

import (
	"regexp"
	"strings"
)

const fence = "```"

// maxPending bounds the buffered-mode carry-over so a fence that never
// closes cannot grow the buffer without limit.
const maxPending = 1 << 20

var (
	blockPattern = regexp.MustCompile("(?s)```([\\w#+.\\-]*)[ \\t]*\\r?\\n(.*?)```")

	filenamePattern = regexp.MustCompile(`(?im)^[ \t]*(?:#+|//+|--|;+|/\*+|<!--)[ \t]*filename:[ \t]*(.+?)[ \t]*(?:\*/|-->)?[ \t]*\r?$`)
)

// Extract returns every complete fenced block in text, in order of
// appearance.
func Extract(text string) []Artifact {
	artifacts, _ := extract(text)
	return artifacts
}

// extract also reports the offset just past the last matched block.
func extract(text string) ([]Artifact, int) {
	if !strings.Contains(text, fence) {
		return nil, 0
	}
	var out []Artifact
	consumed := 0
	for _, m := range blockPattern.FindAllStringSubmatchIndex(text, -1) {
		body := text[m[4]:m[5]]
		out = append(out, Artifact{
			Language: text[m[2]:m[3]],
			Filename: FindFilename(body),
			Body:     body,
		})
		consumed = m[1]
	}
	return out, consumed
}

// FindFilename returns the trimmed name from the first filename directive
// in body, or DefaultFilename.
func FindFilename(body string) string {
	m := filenamePattern.FindStringSubmatch(body)
	if m == nil {
		return DefaultFilename
	}
	if name := strings.TrimSpace(m[1]); name != "" {
		return name
	}
	return DefaultFilename
}

// =============================================================================
// STREAMING EXTRACTOR
// =============================================================================

// Extractor finds artifacts in a stream of chunks. It is owned by a single
// stream and not safe for concurrent use.
type Extractor struct {
	buffered bool
	pending  string
	// skipping is set after an oversized block was dropped; text is ignored
	// until that block's closing fence.
	skipping bool
}

// NewExtractor creates an extractor. With buffered false every chunk is
// scanned independently.
func NewExtractor(buffered bool) *Extractor {
	return &Extractor{buffered: buffered}
}

// Feed scans a chunk and returns the artifacts it completes.
func (e *Extractor) Feed(chunk string) []Artifact {
	if chunk == "" {
		return nil
	}
	if !e.buffered {
		return Extract(chunk)
	}

	e.pending += chunk
	if e.skipping {
		idx := strings.Index(e.pending, fence)
		if idx < 0 {
			e.pending = trailingBackticks(e.pending)
			return nil
		}
		e.pending = e.pending[idx+len(fence):]
		e.skipping = false
	}

	artifacts, consumed := extract(e.pending)
	e.pending, e.skipping = trimPending(e.pending[consumed:])
	return artifacts
}

// Flush ends the stream. An unterminated block is discarded.
func (e *Extractor) Flush() []Artifact {
	e.pending = ""
	e.skipping = false
	return nil
}

// trimPending keeps only what can still become part of a block: everything
// from the next opening fence, or a trailing run of backticks. An open
// block longer than maxPending is dropped and reported as skip.
func trimPending(rest string) (pending string, skip bool) {
	idx := strings.Index(rest, fence)
	if idx < 0 {
		return trailingBackticks(rest), false
	}
	rest = rest[idx:]
	if len(rest) > maxPending {
		return "", true
	}
	return rest, false
}

func trailingBackticks(s string) string {
	return s[len(strings.TrimRight(s, "`")):]
}
