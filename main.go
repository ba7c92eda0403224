// chatwidget - a terminal chat widget for Futurebot.ai style chatflow
// backends.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	host       string
	logLevel   string
	noSave     bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "chatwidget",
		Short: "Chat with a Futurebot.ai chatflow from the terminal",
		Long: `chatwidget is the terminal edition of the Futurebot.ai chat widget.

It talks to a chatflow backend over HTTP, streams replies over a socket when
the backend supports it, and keeps the conversation for 24 hours so it can be
picked up again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default: ~/.chatwidget/config.toml)")
	pf.StringVar(&flags.host, "host", "", "backend host, overrides backend.host")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.noSave, "no-save", false, "do not persist the conversation")

	root.AddCommand(
		newChatCmd(flags),
		newREPLCmd(flags),
		newAskCmd(flags),
		newSessionCmd(flags),
		newConfigCmd(flags),
		newDevserverCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatwidget %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
