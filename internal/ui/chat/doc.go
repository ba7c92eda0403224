// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the terminal rendition of the chat widget.
//
// Model is a Bubble Tea model that renders a conversation.State: user and
// agent bubbles, a loading indicator while the agent is typing, citation
// chips, the clear control and the badge line. Input follows the widget's
// rules (see ClassifyKey): Enter submits, Alt+Enter or Ctrl+J inserts a
// newline, and nothing is submitted while the agent is typing or an input
// method is composing.
package chat
