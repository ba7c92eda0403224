// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli holds the line-oriented front ends of the widget: an
// interactive REPL with input history and a one-shot ask helper.
//
// Both drive the same conversation state the terminal UI uses, so sessions
// restored here show up in the TUI and the other way round.
//
// Colors follow NO_COLOR and FORCE_COLOR and are disabled when stdout is not
// a terminal.
package cli
