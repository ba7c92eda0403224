// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport talks to the chat backend.
//
// Two delivery modes exist. In request mode a question is POSTed to the
// prediction endpoint and the whole reply comes back in the response. In
// stream mode the same POST is made but the reply arrives as events on a
// websocket opened beforehand:
//
//	connect(clientId) start token* sourceDocuments* end
//
// Negotiate decides the mode once per host. All failures are *Error values
// whose Summary is safe to show to the user.
package transport
