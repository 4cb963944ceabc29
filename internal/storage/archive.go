// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/reasonchat/internal/conversation"
	"github.com/jeranaias/reasonchat/internal/util"
)

// DefaultFile is the archive file name inside the config directory.
const DefaultFile = "history.db"

// previewLen is the rune length kept from the first user message.
const previewLen = 80

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL DEFAULT '',
	preview    TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);
`

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when no session matches an ID.
var ErrSessionNotFound = errors.New("session not found")

// ErrAmbiguousID is returned when an ID prefix matches several sessions.
var ErrAmbiguousID = errors.New("session ID prefix is ambiguous")

// =============================================================================
// TYPES
// =============================================================================

// SessionMeta describes a session for listing.
type SessionMeta struct {
	ID           string
	Model        string
	Preview      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Session is a stored session with its messages in order.
type Session struct {
	SessionMeta
	Messages []conversation.Message
}

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is a SQLite-backed session archive. It is safe for concurrent use.
type Archive struct {
	db *sql.DB

	// Model is recorded on sessions created by AppendMessages.
	Model string
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// AppendMessages adds msgs to the session, creating it on first use.
func (a *Archive) AppendMessages(ctx context.Context, sessionID string, msgs []conversation.Message) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("invalid session ID %q: %w", sessionID, err)
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, model, preview, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, a.Model, preview(msgs), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, sessionID, m.Role.String(), m.Content, ts.UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}
	return tx.Commit()
}

func preview(msgs []conversation.Message) string {
	for _, m := range msgs {
		if m.Role == conversation.RoleUser {
			return util.TruncateWidth(util.FirstLine(m.Content), previewLen)
		}
	}
	return ""
}

// List returns up to limit sessions, most recently updated first. A limit
// of zero or less returns all of them.
func (a *Archive) List(ctx context.Context, limit int) ([]SessionMeta, error) {
	query := `
		SELECT s.id, s.model, s.preview, s.created_at, s.updated_at, COUNT(m.id)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.created_at DESC`
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var m SessionMeta
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Model, &m.Preview, &created, &updated, &m.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		m.CreatedAt = time.UnixMilli(created)
		m.UpdatedAt = time.UnixMilli(updated)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Load returns the session whose ID equals or starts with id.
func (a *Archive) Load(ctx context.Context, id string) (*Session, error) {
	fullID, err := a.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	s := &Session{}
	var created, updated int64
	err = a.db.QueryRowContext(ctx,
		`SELECT id, model, preview, created_at, updated_at FROM sessions WHERE id = ?`, fullID).
		Scan(&s.ID, &s.Model, &s.Preview, &created, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.CreatedAt = time.UnixMilli(created)
	s.UpdatedAt = time.UnixMilli(updated)

	rows, err := a.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM messages WHERE session_id = ? ORDER BY id`, fullID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, content string
		var ts int64
		if err := rows.Scan(&role, &content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		r, err := conversation.ParseRole(role)
		if err != nil {
			return nil, err
		}
		s.Messages = append(s.Messages, conversation.Message{Role: r, Content: content, Timestamp: time.UnixMilli(ts)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.MessageCount = len(s.Messages)
	return s, nil
}

// Delete removes a session and its messages.
func (a *Archive) Delete(ctx context.Context, id string) error {
	fullID, err := a.resolve(ctx, id)
	if err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, fullID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// resolve expands an ID prefix to a full session ID.
func (a *Archive) resolve(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrSessionNotFound
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(id)
	rows, err := a.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var full string
		if err := rows.Scan(&full); err != nil {
			return "", err
		}
		if full == id {
			return full, nil
		}
		ids = append(ids, full)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList renders sessions as a table for the terminal.
func FormatSessionList(sessions []SessionMeta) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	rule := strings.Repeat("-", 72) + "\n"
	sb.WriteString(rule)
	sb.WriteString(util.PadWidth("ID", 10) + " " + util.PadWidth("Updated", 17) + " " +
		util.PadWidth("Msgs", 5) + " Preview\n")
	sb.WriteString(rule)
	for _, s := range sessions {
		id := s.ID
		if len(id) > 8 {
			id = id[:8]
		}
		sb.WriteString(util.PadWidth(id, 10) + " " +
			util.PadWidth(s.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadWidth(strconv.Itoa(s.MessageCount), 5) + " " +
			util.TruncateWidth(s.Preview, 36) + "\n")
	}
	return sb.String()
}
