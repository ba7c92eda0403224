// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StateChangedMsg is sent whenever the conversation reports a change.
type StateChangedMsg struct{}

// SubmitDoneMsg carries the outcome of a submission.
type SubmitDoneMsg struct {
	Err error
}

// ClearDoneMsg carries the outcome of a clear.
type ClearDoneMsg struct {
	Err error
}

// CompositionMsg reports input method composition. Hosts that can observe
// an IME send it so Enter is not treated as a submit mid-composition.
type CompositionMsg struct {
	Active bool
}

// OptionsMsg replaces the presentation options, e.g. after a config
// reload. Title and placeholder are kept when left empty.
type OptionsMsg struct {
	Options Options
}

// updatesClosedMsg ends the update subscription.
type updatesClosedMsg struct{}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForUpdate blocks until the conversation signals a change.
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return updatesClosedMsg{}
		}
		return StateChangedMsg{}
	}
}

func submitCmd(ctx context.Context, conv Conversation, text string) tea.Cmd {
	return func() tea.Msg {
		return SubmitDoneMsg{Err: conv.Submit(ctx, text)}
	}
}

func clearCmd(ctx context.Context, conv Conversation) tea.Cmd {
	return func() tea.Msg {
		return ClearDoneMsg{Err: conv.Clear(ctx)}
	}
}
