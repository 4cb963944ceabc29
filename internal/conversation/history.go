// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// ErrStaleTurn is returned by Commit when the history was cleared after the
// turn was staged.
var ErrStaleTurn = errors.New("conversation: history was cleared while the turn was in flight")

// ErrEmptyReply is returned by Commit for an empty assistant reply.
var ErrEmptyReply = errors.New("conversation: empty assistant reply")

// =============================================================================
// HISTORY
// =============================================================================

// History is the ordered message list for the active session.
//
// It is append-only apart from Clear. The first message, if any, is the
// system message; Stage inserts it exactly once, before the first user turn.
// History is safe for concurrent use so that the UI can read it while a
// stream is in flight, but it is only written at stage/commit time.
type History struct {
	mu         sync.RWMutex
	messages   []Message
	sessionID  string
	generation uint64
}

// NewHistory creates an empty history with a fresh session ID.
func NewHistory() *History {
	return &History{sessionID: uuid.NewString()}
}

// Append adds a message at the end of the history.
func (h *History) Append(msg Message) error {
	if !msg.Role.Valid() {
		return errors.New("conversation: invalid role " + string(msg.Role))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Role == RoleSystem && len(h.messages) > 0 {
		return errors.New("conversation: system message must be first")
	}
	h.messages = append(h.messages, msg)
	return nil
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// IsEmpty reports whether the history has no messages.
func (h *History) IsEmpty() bool {
	return h.Len() == 0
}

// Messages returns a copy of the messages in order.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// SessionID identifies the current session. It changes on every Clear.
func (h *History) SessionID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessionID
}

// Format renders the history as a flat prompt, one line per message.
func (h *History) Format() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Format(h.messages)
}

// Clear drops every message and starts a new session. The next staged turn
// re-seeds the system message.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
	h.sessionID = uuid.NewString()
	h.generation++
}

// =============================================================================
// TURNS
// =============================================================================

// Turn is a user message (plus the system seed for a fresh session) that has
// been staged against a snapshot of the history but not yet committed.
type Turn struct {
	base       []Message
	staged     []Message
	generation uint64
}

// Stage prepares a turn for userMessage. When the history is empty the
// system prompt is staged in front of it. The history itself is not
// modified until Commit.
func (h *History) Stage(systemPrompt, userMessage string) *Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	t := &Turn{
		base:       make([]Message, len(h.messages)),
		generation: h.generation,
	}
	copy(t.base, h.messages)

	if len(h.messages) == 0 {
		t.staged = append(t.staged, NewSystemMessage(systemPrompt))
	}
	t.staged = append(t.staged, NewUserMessage(userMessage))
	return t
}

// Messages returns the snapshot followed by the staged messages.
func (t *Turn) Messages() []Message {
	out := make([]Message, 0, len(t.base)+len(t.staged))
	out = append(out, t.base...)
	return append(out, t.staged...)
}

// Staged returns only the messages this turn will add.
func (t *Turn) Staged() []Message {
	out := make([]Message, len(t.staged))
	copy(out, t.staged)
	return out
}

// Seeded reports whether the turn carries the system message.
func (t *Turn) Seeded() bool {
	return len(t.staged) > 0 && t.staged[0].Role == RoleSystem
}

// Format renders the snapshot plus staged messages as a prompt.
func (t *Turn) Format() string {
	return Format(t.Messages())
}

// Commit appends the staged messages and the assistant reply. It returns
// the messages that were added.
func (h *History) Commit(t *Turn, reply string) ([]Message, error) {
	if reply == "" {
		return nil, ErrEmptyReply
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if t.generation != h.generation {
		return nil, ErrStaleTurn
	}

	added := make([]Message, 0, len(t.staged)+1)
	for _, msg := range t.staged {
		// Another turn may have seeded the session in the meantime.
		if msg.Role == RoleSystem && len(h.messages) > 0 {
			continue
		}
		h.messages = append(h.messages, msg)
		added = append(added, msg)
	}
	assistant := NewAssistantMessage(reply)
	h.messages = append(h.messages, assistant)
	added = append(added, assistant)
	return added, nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// Format renders messages one per line with role labels, trimming trailing
// whitespace from the result.
func Format(messages []Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		if !msg.Role.Valid() {
			continue
		}
		sb.WriteString(msg.Line())
		sb.WriteByte('\n')
	}
	return strings.TrimRightFunc(sb.String(), unicode.IsSpace)
}
