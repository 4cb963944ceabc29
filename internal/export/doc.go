// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts and code artifacts to disk.
//
// A Transcript is what the user saw: their messages, the assistant's
// replies, reasoning sections with their titles, and notices. It is built
// by the chat front ends as events arrive, or from stored messages with
// FromMessages.
//
// # Formats
//
//   - Text (.txt and anything unknown): the chat log as displayed
//   - Markdown (.md, .markdown): headings per entry, sections as quotes
//   - JSON (.json): the entries as structured data
//
// WriteFile picks the format from the file extension and writes atomically.
package export
