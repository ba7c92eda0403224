// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the widget.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - RandomAlnum: client-side chat id generation
//   - TruncateRunes, TruncateWidth: Unicode-safe truncation for previews
//
// # Usage
//
//	id := util.RandomAlnum(10)
//	label := util.TruncateWidth(title, 40)
package util
