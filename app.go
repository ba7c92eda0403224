// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/futurebot-ai/chatwidget/internal/config"
	"github.com/futurebot-ai/chatwidget/internal/conversation"
	"github.com/futurebot-ai/chatwidget/internal/logging"
	"github.com/futurebot-ai/chatwidget/internal/storage"
	"github.com/futurebot-ai/chatwidget/internal/typing"
)

// logFileName receives logs while the full screen UI owns the terminal.
const logFileName = "chatwidget.log"

// outputMode says who owns the terminal, which decides where logs go.
type outputMode int

const (
	outputTUI outputMode = iota
	outputLine
	outputServer
)

// app bundles what every command needs.
type app struct {
	cfg        *config.Config
	configPath string
	logger     zerolog.Logger
	logCloser  io.Closer
	store      *storage.SessionStore
}

// loadApp reads the configuration, applies flag overrides, sets up logging
// and opens the session store.
func loadApp(ctx context.Context, flags *globalFlags, mode outputMode) (*app, error) {
	cfg, path, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.host != "" {
		cfg.Backend.Host = flags.host
	}
	switch {
	case flags.logLevel != "":
		cfg.Logging.Level = flags.logLevel
	case mode == outputLine && cfg.Logging.File == "":
		cfg.Logging.Level = "warn"
	}
	if mode == outputTUI && cfg.Logging.File == "" {
		if dir, err := config.ConfigDir(); err == nil {
			cfg.Logging.File = filepath.Join(dir, logFileName)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, closer, err := logging.Setup(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}

	backend, err := storage.OpenBackend(ctx, cfg.Storage)
	if err != nil {
		closer.Close()
		return nil, err
	}
	store := storage.NewSessionStore(backend,
		storage.WithDisabled(cfg.Widget.ClearOnRefresh || flags.noSave),
		storage.WithLogger(logger),
	)

	return &app{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		logCloser:  closer,
		store:      store,
	}, nil
}

// loadConfig loads path, or the first existing default config file. It
// returns the file actually read, or "" when running on defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		return cfg, path, err
	}

	paths, err := config.ConfigPaths()
	if err != nil {
		return nil, "", err
	}
	for _, p := range paths {
		if _, statErr := os.Stat(p); statErr == nil {
			cfg, err := config.LoadFromPath(p)
			return cfg, p, err
		}
	}
	cfg, err := config.Load()
	return cfg, "", err
}

// sessionKey is the storage key of the configured widget instance.
func (a *app) sessionKey() string {
	w := a.cfg.Widget
	return storage.Key(w.Inline(), w.BotID, w.PineconeNamespace)
}

// newConversation builds and mounts the conversation state.
func (a *app) newConversation(ctx context.Context) (*conversation.State, error) {
	state, err := conversation.NewFromConfig(
		a.cfg,
		a.store,
		typing.NewWithLogger(logging.Component(a.logger, "typing")),
		logging.Component(a.logger, "conversation"),
	)
	if err != nil {
		return nil, err
	}
	if err := state.Mount(ctx); err != nil {
		state.Close()
		return nil, err
	}
	return state, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close session store")
	}
	a.logCloser.Close()
}
