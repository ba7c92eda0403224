// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"io"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned by backends when no entry exists for a key.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &StorageError{Message: "session not found"}

// ErrCorrupt marks a persisted record that could not be decoded.
var ErrCorrupt = &StorageError{Message: "session record corrupt"}

// StorageError represents a storage-related error.
type StorageError struct {
	Message string
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing storage errors.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// BACKEND
// =============================================================================

// Backend stores opaque records by key. Put overwrites; Delete of a missing
// key is not an error.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	io.Closer
}

// =============================================================================
// KEYS
// =============================================================================

// KeyPrefix namespaces every session key.
const KeyPrefix = "chatHistory"

// KeySeparator sits between the placement part of a key and the id.
const KeySeparator = "_"

// Key derives the storage key for a widget instance: the prefix, "Inline"
// for inline placement, then "_" and botID or, when empty, namespace. The
// separator keeps an id such as "Inlinex" from colliding with the inline
// key of "x".
func Key(inline bool, botID, namespace string) string {
	key := KeyPrefix
	if inline {
		key += "Inline"
	}
	id := botID
	if id == "" {
		id = namespace
	}
	if id == "" {
		return key
	}
	return key + KeySeparator + id
}
