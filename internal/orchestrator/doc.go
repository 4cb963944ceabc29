// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator runs one chat turn against the model.
//
// A turn stages the user message against the history, formats the prompt,
// streams /api/generate and pushes every fragment through a section
// classifier and a code block extractor. The results are emitted as Events:
//
//   - SectionEvent: plain text or a reasoning section update
//   - ArtifactEvent: a completed fenced code block
//   - NoticeEvent: an info or error line for the user
//   - CompletedEvent: the full reply and stream statistics
//
// Send runs the turn on its own goroutine and returns a channel of events,
// which the TUI drains from a tea.Cmd. Deliver hands a single event to a
// DisplaySink and an ArtifactSink. Stream combines both for line-oriented
// front ends.
//
// The staged turn is committed to the history only when the model produced
// a non-empty reply. Transport failures and empty replies leave the history
// untouched, so the next Send starts from the same state.
//
// Only one turn should be in flight at a time. A second concurrent Send is
// allowed but logged, since both turns would be staged against the same
// snapshot.
package orchestrator
