// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea chat screen.
//
// The screen feeds user input to an orchestrator, reads its event channel
// one message at a time and renders the transcript: plain assistant text,
// the live reasoning panel, finished sections in their tag color and
// notices. Code blocks are queued and shown in an artifact preview.
package chat
