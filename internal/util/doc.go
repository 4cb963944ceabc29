// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by reasonchat's packages.
//
//   - AtomicWriteFile: crash-safe file writes for config, transcripts and
//     saved artifacts
//   - TruncateWidth, PadWidth, FirstLine: terminal-width aware string
//     helpers for the TUI and the history listing
package util
