// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typing distributes the shared "agent is composing" flag.
//
// A single Broadcaster is created per process and handed to every
// conversation and UI component that reads or writes the flag. While the flag
// is set, new submissions are rejected.
package typing

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Token identifies a subscription. The zero value is never issued.
type Token string

type subscriber struct {
	token  Token
	fn     func(bool)
	active atomic.Bool
}

// Broadcaster holds the flag and its subscribers.
type Broadcaster struct {
	// dispatch orders transitions together with their notifications, so
	// subscribers see values in the order the flag took them.
	dispatch sync.Mutex

	mu    sync.Mutex
	value bool
	subs  []*subscriber // subscription order

	logger zerolog.Logger
}

// New creates a broadcaster with the flag cleared.
func New() *Broadcaster {
	return NewWithLogger(zerolog.Nop())
}

// NewWithLogger creates a broadcaster that logs flag transitions at debug
// level.
func NewWithLogger(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger.With().Str("component", "typing").Logger(),
	}
}

// Get returns the current value.
func (b *Broadcaster) Get() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Set updates the flag. Subscribers are notified synchronously, in
// subscription order, only when the value changes.
func (b *Broadcaster) Set(value bool) {
	b.CompareAndSet(!value, value)
}

// CompareAndSet sets the flag to next only if it currently equals current,
// notifying subscribers on success. Submitters use it to claim the flag
// without racing other instances.
//
// Callbacks must not call Set or CompareAndSet.
func (b *Broadcaster) CompareAndSet(current, next bool) bool {
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	if b.value != current || current == next {
		b.mu.Unlock()
		return false
	}
	b.value = next
	targets := make([]*subscriber, len(b.subs))
	copy(targets, b.subs)
	b.mu.Unlock()

	b.logger.Debug().Bool("typing", next).Int("subscribers", len(targets)).Msg("typing flag changed")

	// Callbacks run without mu held so they may subscribe, unsubscribe or
	// read the flag.
	for _, s := range targets {
		if s.active.Load() {
			s.fn(next)
		}
	}
	return true
}

// Subscribe registers fn and returns the token needed to remove it.
// fn is not called with the current value.
func (b *Broadcaster) Subscribe(fn func(bool)) Token {
	s := &subscriber{
		token: Token(uuid.NewString()),
		fn:    fn,
	}
	s.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s.token
}

// Unsubscribe removes the subscription. Unknown tokens are ignored. A
// subscriber removed during a notification is not invoked afterwards.
func (b *Broadcaster) Unsubscribe(token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.token != token {
			continue
		}
		s.active.Store(false)
		// Fresh slice so snapshots taken by in-flight notifications stay intact.
		next := make([]*subscriber, 0, len(b.subs)-1)
		next = append(next, b.subs[:i]...)
		next = append(next, b.subs[i+1:]...)
		b.subs = next
		return
	}
}

// Len returns the number of active subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
