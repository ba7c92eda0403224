// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Message: one turn, with role, text and optional citations
//   - Citation: a source fragment with loosely typed metadata
//   - Conversation: the ordered message log; only the last entry is mutable
//   - Session: the persisted record {chatId, timestamp, messages}
//   - Role: apiMessage, userMessage, usermessagewaiting
//
// # Usage
//
//	conv := model.NewConversation("Hi there! How can I help?")
//	conv.Append(model.NewUserMessage("hello"))
//	conv.Append(model.NewPendingMessage())
//	conv.UpdateLast(func(m *model.Message) { m.AppendToken("Hi") })
package model
