// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the chat history sent to the model.
//
// # Key Types
//
//   - Role: sender of a message (system, user, assistant)
//   - Message: immutable role-tagged text
//   - History: ordered, append-only message list with a full-clear reset
//   - Turn: a staged exchange that is committed to History only once the
//     model produced a non-empty reply
//
// # Usage
//
//	h := conversation.NewHistory()
//	turn := h.Stage(systemPrompt, "How do I parse NDJSON?")
//	prompt := turn.Format() + "\nAssistant:"
//	// ... stream the reply ...
//	h.Commit(turn, reply)
//
// History.Format renders one line per message with "System:", "Human:" and
// "Assistant:" prefixes, which is the flat prompt format expected by the
// /api/generate endpoint.
package conversation
