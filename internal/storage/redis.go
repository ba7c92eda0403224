// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/futurebot-ai/chatwidget/internal/model"
)

// RedisBackend stores records as plain Redis strings. Keys expire after TTL,
// which defaults to the session freshness window so Redis drops what Load
// would discard anyway.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	Addr   string
	DB     int
	Prefix string        // prepended to every key, e.g. "chatwidget:"
	TTL    time.Duration // 0 means model.FreshnessWindow
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisBackendWithClient(client, opts.Prefix, opts.TTL), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	if ttl <= 0 {
		ttl = model.FreshnessWindow
	}
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

// Get reads the record for key.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put overwrites the record and refreshes its TTL.
func (r *RedisBackend) Put(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, r.prefix+key, data, r.ttl).Err()
}

// Delete removes the record.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Close closes the client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
