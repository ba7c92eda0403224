// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session.go - Blocking helpers over a conversation.
//
// Ask submits a question and waits until the agent has stopped typing, so
// line-mode callers can treat a streamed turn like a request.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/futurebot-ai/chatwidget/internal/citation"
	"github.com/futurebot-ai/chatwidget/internal/conversation"
	"github.com/futurebot-ai/chatwidget/internal/model"
)

// idlePoll bounds how long WaitIdle sleeps between snapshots when no update
// arrives.
const idlePoll = 250 * time.Millisecond

// Session is the part of conversation.State the line front ends use.
type Session interface {
	Snapshot() conversation.Snapshot
	Submit(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	Updates() <-chan struct{}
}

// Ask submits text and blocks until the agent has finished replying. It
// returns the messages appended by the exchange, the question included.
// A transport failure is returned alongside the messages, whose last entry
// then carries the error text.
func Ask(ctx context.Context, s Session, text string) ([]model.Message, error) {
	before := len(s.Snapshot().Messages)
	submitErr := s.Submit(ctx, text)
	if errors.Is(submitErr, conversation.ErrEmpty) || errors.Is(submitErr, conversation.ErrBusy) ||
		errors.Is(submitErr, conversation.ErrNotMounted) || errors.Is(submitErr, conversation.ErrClosed) {
		return nil, submitErr
	}
	if err := WaitIdle(ctx, s); err != nil {
		return nil, err
	}

	msgs := s.Snapshot().Messages
	if before > len(msgs) {
		before = 0
	}
	return msgs[before:], submitErr
}

// WaitIdle blocks until the agent is neither typing nor awaiting a reply.
func WaitIdle(ctx context.Context, s Session) error {
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for {
		snap := s.Snapshot()
		if !snap.Typing && snap.Phase != conversation.PhaseAwaiting {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Updates():
		case <-ticker.C:
		}
	}
}

// replies drops the user side of an exchange.
func replies(msgs []model.Message) []model.Message {
	var out []model.Message
	for _, m := range msgs {
		if m.Role.IsAgent() {
			out = append(out, m)
		}
	}
	return out
}

// printSources lists the citations that clear threshold.
func printSources(w io.Writer, cs []model.Citation, threshold float64) {
	visible := citation.Filter(cs, threshold)
	if len(visible) == 0 {
		return
	}
	mutedColor.Fprintln(w, "Sources:")
	for _, c := range visible {
		fmt.Fprintf(w, "  • %s ", citation.Label(c))
		linkColor.Fprintln(w, c.SourceURL())
	}
}
