// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage archives committed chat turns in SQLite.
//
// Each History session (identified by its UUID) becomes a row in the
// sessions table; every committed message is appended to the messages
// table. The archive is write-only from the chat's point of view: it is
// never used to rebuild the prompt, only browsed through the history
// command.
//
// # Usage
//
//	archive, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer archive.Close()
//	sessions, err := archive.List(ctx, 20)
package storage
