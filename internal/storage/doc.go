// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation sessions.
//
// SessionStore owns the policy (12 hour freshness window, corrupt records
// treated as absent, persistence switch) and delegates bytes to a Backend:
//
//   - FileBackend: one JSON file per key, written atomically
//   - SQLiteBackend: one row per key (modernc.org/sqlite, no cgo)
//   - RedisBackend: one string per key with a matching TTL
//   - MemoryBackend: tests and throwaway sessions
//
// Keys come from Key, so widgets with different bot ids never share a slot.
package storage
