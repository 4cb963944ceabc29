// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI building blocks for the reasonchat TUI:
// syntax-highlighted code rendering and the artifact preview overlay.
package components
