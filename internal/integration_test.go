// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package internal

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurebot-ai/chatwidget/internal/config"
	"github.com/futurebot-ai/chatwidget/internal/conversation"
	"github.com/futurebot-ai/chatwidget/internal/devserver"
	"github.com/futurebot-ai/chatwidget/internal/export"
	"github.com/futurebot-ai/chatwidget/internal/storage"
	"github.com/futurebot-ai/chatwidget/internal/typing"
)

// openStore opens the configured backend, as the CLI does.
func openStore(t *testing.T, cfg *config.Config, opts ...storage.Option) *storage.SessionStore {
	t.Helper()
	backend, err := storage.OpenBackend(context.Background(), cfg.Storage)
	require.NoError(t, err)
	return storage.NewSessionStore(backend, opts...)
}

func mounted(t *testing.T, cfg *config.Config, store storage.Store) *conversation.State {
	t.Helper()
	s, err := conversation.NewFromConfig(cfg, store, typing.New(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Mount(context.Background()))
	return s
}

// TestEndToEndRestore asks a question, closes everything and checks that a
// fresh instance on the same storage picks the conversation up again.
func TestEndToEndRestore(t *testing.T) {
	for _, backend := range []string{config.StorageFile, config.StorageSQLite} {
		t.Run(backend, func(t *testing.T) {
			t.Setenv("CHATWIDGET_HOME", t.TempDir())

			srv := devserver.New(devserver.Config{ChatflowID: "flow", Logger: zerolog.Nop()})
			ts := httptest.NewServer(srv.Handler())
			defer ts.Close()

			cfg := config.Default()
			cfg.Backend.Host = ts.URL
			cfg.Backend.ChatflowID = "flow"
			cfg.Storage.Backend = backend
			cfg.Widget.BotID = "shop"

			store := openStore(t, cfg)
			first := mounted(t, cfg, store)
			require.NoError(t, first.Submit(context.Background(), "hello"))
			chatID := first.ChatID()
			require.NoError(t, first.Close())
			require.NoError(t, store.Close())

			store = openStore(t, cfg)
			defer store.Close()
			second := mounted(t, cfg, store)
			defer second.Close()

			msgs := second.Messages()
			require.Len(t, msgs, 3)
			assert.Equal(t, cfg.Widget.WelcomeMessage, msgs[0].Text)
			assert.Equal(t, "hello", msgs[1].Text)
			assert.Equal(t, "You asked: hello", msgs[2].Text)
			assert.Equal(t, chatID, second.ChatID())

			sess, err := store.Load(context.Background(), storage.Key(false, "shop", ""))
			require.NoError(t, err)
			require.NotNil(t, sess)

			md, err := export.ForFormat("md", export.DefaultOptions())
			require.NoError(t, err)
			out, err := md.Export(export.FromSession("Transcript", sess))
			require.NoError(t, err)
			assert.Contains(t, string(out), "You asked: hello")
			assert.Contains(t, string(out), "/getting-started")
		})
	}
}

func TestEndToEndExpiredSession(t *testing.T) {
	t.Setenv("CHATWIDGET_HOME", t.TempDir())

	srv := devserver.New(devserver.Config{ChatflowID: "flow", Logger: zerolog.Nop()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfg := config.Default()
	cfg.Backend.Host = ts.URL
	cfg.Backend.ChatflowID = "flow"

	now := time.Now()
	clock := func() time.Time { return now }
	store := openStore(t, cfg, storage.WithClock(clock))
	defer store.Close()

	first := mounted(t, cfg, store)
	require.NoError(t, first.Submit(context.Background(), "hello"))
	require.NoError(t, first.Close())

	now = now.Add(25 * time.Hour)
	second := mounted(t, cfg, store)
	defer second.Close()

	msgs := second.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, cfg.Widget.WelcomeMessage, msgs[0].Text)
}

func TestEndToEndClearOnRefresh(t *testing.T) {
	t.Setenv("CHATWIDGET_HOME", t.TempDir())

	srv := devserver.New(devserver.Config{ChatflowID: "flow", Logger: zerolog.Nop()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfg := config.Default()
	cfg.Backend.Host = ts.URL
	cfg.Backend.ChatflowID = "flow"
	cfg.Widget.ClearOnRefresh = true

	store := openStore(t, cfg, storage.WithDisabled(cfg.Widget.ClearOnRefresh))
	defer store.Close()

	first := mounted(t, cfg, store)
	require.NoError(t, first.Submit(context.Background(), "hello"))
	require.NoError(t, first.Close())

	second := mounted(t, cfg, store)
	defer second.Close()
	assert.Len(t, second.Messages(), 1)
}
