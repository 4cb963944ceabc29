// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codeblock finds fenced code blocks in model output and turns them
// into artifacts that can be previewed, copied or saved.
//
// A block is opened by three backticks followed by an optional language tag
// and a newline, and closed by the next three backticks. A comment line such
// as
//
//	# Filename: server.py
//	// Filename: main.go
//
// inside the block names the file; without one the artifact is "Untitled".
//
// Extract scans a complete text. An Extractor scans a stream: in per-chunk
// mode every chunk is scanned on its own, so a block split across chunks is
// missed; in buffered mode chunks are accumulated and each complete block is
// reported once.
package codeblock
