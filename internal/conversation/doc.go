// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the state of one chat widget instance.
//
// A State moves Idle -> Ready on Mount and Ready -> Awaiting -> Ready for
// each submission. It owns the message log, persists it after every
// mutation, and applies stream events strictly in arrival order. The typing
// flag is shared with other instances through a typing.Broadcaster and is
// the only admission control: while it is set, Submit and Clear are
// rejected.
//
// Render layers read through Snapshot or the individual accessors and wait
// on Updates for change signals.
package conversation
