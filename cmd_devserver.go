// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cmd_devserver.go - Local chat backend for development.
//
// Command: devserver
//
// Examples:
//   chatwidget devserver --addr :3000 --flow demo
//   chatwidget devserver --no-stream
//   chatwidget devserver --tps 20 --list-metadata

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/futurebot-ai/chatwidget/internal/config"
	"github.com/futurebot-ai/chatwidget/internal/devserver"
	"github.com/futurebot-ai/chatwidget/internal/logging"
)

func newDevserverCmd() *cobra.Command {
	cfg := devserver.DefaultConfig()
	var (
		noStream bool
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local backend that echoes questions",
		Long: `Run a local chatflow backend for trying the widget without a real one.

It answers every question with "You asked: <question>" plus sample sources,
and streams the answer over the socket unless --no-stream is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := logging.Setup(config.LoggingConfig{Level: logLevel}, os.Stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			cfg.Streaming = !noStream
			cfg.Logger = logging.Component(logger, "devserver")
			return devserver.New(cfg).ListenAndServe(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	f.StringVar(&cfg.ChatflowID, "flow", "", "only accept this chatflow id")
	f.BoolVar(&noStream, "no-stream", false, "report streaming as unavailable")
	f.Float64Var(&cfg.TokensPerSecond, "tps", cfg.TokensPerSecond, "streamed tokens per second (0 for no pacing)")
	f.BoolVar(&cfg.ListMetadata, "list-metadata", false, "send citation metadata as name/value lists")
	f.StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}
