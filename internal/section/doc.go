// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package section classifies streamed model output into plain conversational
// text and structured reasoning sections.
//
// Models prompted with the reasoning persona wrap parts of their reply in
// pseudo-tags:
//
//	<thinking> ... </thinking>
//	<analyzing> ... </analyzing>
//	<implementing> ... </implementing>
//
// A Classifier consumes arbitrarily sized chunks and returns typed events
// (PlainText, SectionStart, SectionAppend, SectionEnd). At most one section
// is open at a time; a start tag for another kind closes the open section
// first, and any end tag closes whatever is open. Close must be called when
// the stream ends so that an unterminated section is finalized (the event is
// marked Recovered).
//
// # Boundary policies
//
// PolicyPerChunk tests each chunk for marker substrings independently: a tag
// split across two chunks is not recognized and is shown as text. PolicyBuffered scans an internal buffer
// positionally and holds back any tail that could be the start of a tag, so
// split tags and several tags in one chunk are handled.
package section
