// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies who produced a message. The values are the wire names the
// backend and the persisted session records use.
type Role string

const (
	RoleAgent        Role = "apiMessage"
	RoleUser         Role = "userMessage"
	RoleAgentPending Role = "usermessagewaiting"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAgent, RoleAgentPending:
		return "Assistant"
	default:
		return string(r)
	}
}

// IsAgent reports whether the role belongs to the agent side of the
// conversation, including the pending placeholder.
func (r Role) IsAgent() bool {
	return r == RoleAgent || r == RoleAgentPending
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one turn in the conversation.
type Message struct {
	ID        string     `json:"id,omitempty"`
	Role      Role       `json:"type"`
	Text      string     `json:"message"`
	Citations []Citation `json:"sourceDocuments,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:   generateID(),
		Role: role,
		Text: text,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, text)
}

// NewAgentMessage creates a completed agent message.
func NewAgentMessage(text string, citations []Citation) Message {
	msg := NewMessage(RoleAgent, text)
	msg.Citations = citations
	return msg
}

// NewPendingMessage creates the empty placeholder inserted while waiting for
// the agent's first token.
func NewPendingMessage() Message {
	return NewMessage(RoleAgentPending, "")
}

// AppendToken appends a streamed fragment. The first fragment turns a pending
// placeholder into a regular agent message.
func (m *Message) AppendToken(token string) {
	m.Text += token
	if m.Role == RoleAgentPending {
		m.Role = RoleAgent
	}
}

// Settle marks a finished reply as an agent message even when no fragment
// arrived.
func (m *Message) Settle() {
	if m.Role == RoleAgentPending {
		m.Role = RoleAgent
	}
}

// SetCitations replaces the citation list wholesale.
func (m *Message) SetCitations(citations []Citation) {
	if len(citations) == 0 {
		m.Citations = nil
		return
	}
	m.Citations = append([]Citation(nil), citations...)
}

// IsPending reports whether the message is a placeholder with no text yet.
func (m Message) IsPending() bool {
	return m.Role == RoleAgentPending && m.Text == ""
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Citations != nil {
		out.Citations = make([]Citation, len(m.Citations))
		for i, c := range m.Citations {
			out.Citations[i] = c.Clone()
		}
	}
	return out
}

// =============================================================================
// HISTORY
// =============================================================================

// HistoryItem is the reduced form of a message sent back to the backend.
type HistoryItem struct {
	Message string `json:"message"`
	Type    Role   `json:"type"`
}

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
