// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/futurebot-ai/chatwidget/internal/util"
)

// FileBackend stores each key as a JSON file under BaseDir.
type FileBackend struct {
	// BaseDir is the directory for session files.
	// Default: ~/.chatwidget/sessions/
	BaseDir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(baseDir string) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	return &FileBackend{BaseDir: baseDir}, nil
}

// Get reads the record for key.
func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put writes the record atomically.
func (f *FileBackend) Put(_ context.Context, key string, data []byte) error {
	// RELIABILITY: a crash mid-write leaves the previous record intact
	return util.AtomicWriteFile(f.filePath(key), data, 0600)
}

// Delete removes the record.
func (f *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(f.filePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close is a no-op.
func (f *FileBackend) Close() error { return nil }

// filePath escapes key so bot ids cannot walk out of BaseDir.
func (f *FileBackend) filePath(key string) string {
	return filepath.Join(f.BaseDir, url.PathEscape(key)+".json")
}
