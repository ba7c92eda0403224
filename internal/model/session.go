// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// FreshnessWindow is how long a persisted session stays restorable.
const FreshnessWindow = 12 * time.Hour

// Session is the persisted unit: the chat identity plus its message log.
// Timestamp is epoch milliseconds.
type Session struct {
	ChatID    string    `json:"chatId"`
	Timestamp int64     `json:"timestamp"`
	Messages  []Message `json:"messages"`
}

// NewSession builds a record stamped with now.
func NewSession(chatID string, messages []Message, now time.Time) *Session {
	return &Session{
		ChatID:    chatID,
		Timestamp: now.UnixMilli(),
		Messages:  messages,
	}
}

// SavedAt returns the save time.
func (s *Session) SavedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Age returns how long ago the record was saved.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.SavedAt())
}

// Fresh reports whether the record is still inside the freshness window.
func (s *Session) Fresh(now time.Time) bool {
	return s.Age(now) <= FreshnessWindow
}
