// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the reasonchat command line.
//
// Running reasonchat without a subcommand opens the chat TUI. The
// subcommands cover scripted use:
//
//	reasonchat ask "explain this regex"   one-shot question
//	reasonchat chat                       line-based REPL
//	reasonchat history list               archived sessions
//	reasonchat history show <id>          print a session
//	reasonchat config get gui.theme       read a setting
//	reasonchat models                     models installed in Ollama
package cli
