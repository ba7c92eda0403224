// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the widget.
type KeyMap struct {
	Submit   key.Binding
	Newline  key.Binding
	Clear    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("Alt+Enter", "new line"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear chat"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("Esc", "quit"),
		),
	}
}

// =============================================================================
// INPUT RULES
// =============================================================================

// InputAction is what a key press does to the widget.
type InputAction int

const (
	// ActionInput passes the key to the text area.
	ActionInput InputAction = iota
	// ActionIgnore drops the key.
	ActionIgnore
	ActionSubmit
	ActionNewline
	ActionClear
	ActionScroll
	ActionQuit
)

// ClassifyKey applies the input rules. While an input method is composing
// every key goes to the text area; while the agent is typing Enter is
// swallowed instead of submitting.
func ClassifyKey(msg tea.KeyMsg, keys KeyMap, composing, typing bool) InputAction {
	if composing {
		return ActionInput
	}
	switch {
	case key.Matches(msg, keys.Quit):
		return ActionQuit
	case key.Matches(msg, keys.Newline):
		return ActionNewline
	case key.Matches(msg, keys.Submit):
		if typing {
			return ActionIgnore
		}
		return ActionSubmit
	case key.Matches(msg, keys.Clear):
		if typing {
			return ActionIgnore
		}
		return ActionClear
	case key.Matches(msg, keys.PageUp, keys.PageDown):
		return ActionScroll
	default:
		return ActionInput
	}
}
