// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to files.
//
// # Supported Formats
//
//   - Markdown: role headings, message text and visible sources
//   - HTML: standalone page, message text rendered with goldmark
//   - JSON: the persisted session record
//
// # Usage
//
//	exporter, err := export.ForFormat("html", export.DefaultOptions())
//	path, err := export.ExportToFile(export.FromSession("Support chat", session), exporter, nil)
package export
