// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurebot-ai/chatwidget/internal/model"
)

// Store is what a conversation needs from persistence.
type Store interface {
	Load(ctx context.Context, key string) (*model.Session, error)
	Save(ctx context.Context, key string, session *model.Session) error
	Clear(ctx context.Context, key string) error
}

// SessionStore applies the session policy on top of a Backend: JSON
// encoding, the freshness window, and the persistence switch.
type SessionStore struct {
	backend  Backend
	disabled bool
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithDisabled turns Load and Save into no-ops. Clear still removes entries.
func WithDisabled(disabled bool) Option {
	return func(s *SessionStore) { s.disabled = disabled }
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *SessionStore) { s.logger = logger }
}

// NewSessionStore wraps backend.
func NewSessionStore(backend Backend, opts ...Option) *SessionStore {
	s := &SessionStore{
		backend: backend,
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "storage").Logger()
	return s
}

// Disabled reports whether persistence is switched off.
func (s *SessionStore) Disabled() bool {
	return s.disabled
}

// Load returns the stored session, or nil when there is none, it is corrupt,
// or it is older than the freshness window. Corrupt and stale entries are
// deleted. Backend I/O errors are returned.
func (s *SessionStore) Load(ctx context.Context, key string) (*model.Session, error) {
	if s.disabled {
		return nil, nil
	}

	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", key, err)
	}

	session, err := decodeSession(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable session")
		s.remove(ctx, key)
		return nil, nil
	}

	now := s.now()
	if !session.Fresh(now) {
		s.logger.Debug().Str("key", key).Dur("age", session.Age(now)).Msg("discarding expired session")
		s.remove(ctx, key)
		return nil, nil
	}
	return session, nil
}

// Save overwrites the entry for key. It does nothing when persistence is
// disabled.
func (s *SessionStore) Save(ctx context.Context, key string, session *model.Session) error {
	if s.disabled {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save session %q: %w", key, err)
	}
	return nil
}

// Clear removes the entry for key.
func (s *SessionStore) Clear(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear session %q: %w", key, err)
	}
	return nil
}

// Close closes the backend.
func (s *SessionStore) Close() error {
	return s.backend.Close()
}

func (s *SessionStore) remove(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to delete session")
	}
}

// decodeSession parses a persisted record. A record must be a JSON object
// with a timestamp.
func decodeSession(data []byte) (*model.Session, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if _, ok := raw["timestamp"]; !ok {
		return nil, fmt.Errorf("%w: missing timestamp", ErrCorrupt)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &session, nil
}
