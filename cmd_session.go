// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cmd_session.go - Inspect, clear and export the saved session.
//
// Command: session show|clear|export
//
// Examples:
//   chatwidget session show --json
//   chatwidget session clear
//   chatwidget session export -f html --open

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/futurebot-ai/chatwidget/internal/cli"
	"github.com/futurebot-ai/chatwidget/internal/export"
	"github.com/futurebot-ai/chatwidget/internal/model"
)

const transcriptTitle = "Chat transcript"

func newSessionCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect, clear or export the saved conversation",
	}
	cmd.AddCommand(
		newSessionShowCmd(flags),
		newSessionClearCmd(flags),
		newSessionExportCmd(flags),
	)
	return cmd
}

// loadSession returns the saved session, or nil when there is none.
func loadSession(ctx context.Context, a *app) (*model.Session, error) {
	return a.store.Load(ctx, a.sessionKey())
}

func newSessionShowCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, flags, outputLine)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := loadSession(ctx, a)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if sess == nil {
				cli.PrintInfo(out, "No saved conversation for %s.", a.sessionKey())
				return nil
			}
			if asJSON {
				return writeSessionJSON(out, sess)
			}

			md, err := export.ForFormat("markdown", export.DefaultOptions())
			if err != nil {
				return err
			}
			data, err := md.Export(export.FromSession(transcriptTitle, sess))
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored record")
	return cmd
}

func writeSessionJSON(w io.Writer, sess *model.Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sess)
}

func newSessionClearCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, flags, outputLine)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Clear(ctx, a.sessionKey()); err != nil {
				return err
			}
			cli.PrintSuccess(cmd.OutOrStdout(), "Cleared %s.", a.sessionKey())
			return nil
		},
	}
}

func newSessionExportCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		dir    string
		open   bool
		theme  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved conversation to a file",
		Example: `  chatwidget session export --format html --open
  chatwidget session export --format md --dir ~/transcripts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, flags, outputLine)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := loadSession(ctx, a)
			if err != nil {
				return err
			}
			if sess == nil {
				return fmt.Errorf("no saved conversation for %s", a.sessionKey())
			}

			opts := export.DefaultOptions()
			opts.OutputDir = dir
			opts.OpenAfterExport = open
			opts.Theme = theme
			if t := a.cfg.Widget.CitationThreshold; t > 0 {
				opts.CitationThreshold = t
			}
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return err
			}
			path, err := export.ExportToFile(export.FromSession(transcriptTitle, sess), exporter, opts)
			if err != nil {
				return err
			}
			cli.PrintSuccess(cmd.OutOrStdout(), "Exported to %s", path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "markdown", "markdown, html or json")
	f.StringVarP(&dir, "dir", "d", ".", "output directory")
	f.BoolVar(&open, "open", false, "open the file afterwards")
	f.StringVar(&theme, "theme", "light", "HTML theme: light or dark")
	return cmd
}
