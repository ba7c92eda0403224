// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// MaxMessages bounds the in-memory log. When exceeded, the oldest messages
// after the first are pruned.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered message log. Only the last message may be
// modified after it is appended.
//
// Conversation is not safe for concurrent use; callers serialize access.
type Conversation struct {
	messages []Message
}

// NewConversation creates a log seeded with a single welcome message.
func NewConversation(welcome string) *Conversation {
	c := &Conversation{}
	c.Reset(welcome)
	return c
}

// ConversationFrom creates a log holding copies of messages.
func ConversationFrom(messages []Message) *Conversation {
	c := &Conversation{messages: make([]Message, 0, len(messages))}
	for _, m := range messages {
		c.messages = append(c.messages, m.Clone())
	}
	return c
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message at the end of the log.
func (c *Conversation) Append(msg Message) {
	c.messages = append(c.messages, msg)
	c.prune()
}

// Last returns a copy of the last message.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1].Clone(), true
}

// UpdateLast applies fn to the last message in place. It returns false when
// the log is empty.
func (c *Conversation) UpdateLast(fn func(*Message)) bool {
	if len(c.messages) == 0 {
		return false
	}
	fn(&c.messages[len(c.messages)-1])
	return true
}

// Reset drops every message and reseeds the welcome message.
func (c *Conversation) Reset(welcome string) {
	c.messages = []Message{NewAgentMessage(welcome, nil)}
}

// Messages returns a deep copy of the log.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// History returns the turns to send back to the backend. Messages whose text
// equals the welcome message are left out. Placeholders are reported as
// agent turns.
func (c *Conversation) History(welcome string) []HistoryItem {
	items := make([]HistoryItem, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Text == welcome {
			continue
		}
		role := m.Role
		if role == RoleAgentPending {
			role = RoleAgent
		}
		items = append(items, HistoryItem{Message: m.Text, Type: role})
	}
	return items
}

func (c *Conversation) prune() {
	if len(c.messages) <= MaxMessages {
		return
	}
	excess := len(c.messages) - MaxMessages
	// Keep the seeded first message.
	c.messages = append(c.messages[:1], c.messages[1+excess:]...)
}
