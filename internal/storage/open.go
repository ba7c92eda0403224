// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/futurebot-ai/chatwidget/internal/config"
)

// OpenBackend creates the backend selected in cfg. Relative paths are
// resolved against the config directory.
func OpenBackend(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return NewMemoryBackend(), nil

	case config.StorageSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "sessions.db"
		}
		path, err := resolve(path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteBackend(path)

	case config.StorageRedis:
		return NewRedisBackend(ctx, RedisOptions{
			Addr:   cfg.RedisAddr,
			DB:     cfg.RedisDB,
			Prefix: "chatwidget:",
		})

	case config.StorageFile, "":
		dir := cfg.Dir
		if dir == "" {
			dir = "sessions"
		}
		dir, err := resolve(dir)
		if err != nil {
			return nil, err
		}
		return NewFileBackend(dir)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func resolve(path string) (string, error) {
	if filepath.IsAbs(path) || path == ":memory:" {
		return path, nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, path), nil
}
