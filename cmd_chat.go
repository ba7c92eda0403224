// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cmd_chat.go - chat, repl and ask commands.
//
// Command: chat (default)
// Short:   Open the terminal chat widget
//
// Falls back to the REPL when stdin or stdout is not a terminal. The config
// file is watched and presentation changes are applied live.
//
// Examples:
//   chatwidget
//   chatwidget repl --render code
//   chatwidget ask --json "What are your opening hours?"

package main

import (
	"context"
	"errors"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/futurebot-ai/chatwidget/internal/cli"
	"github.com/futurebot-ai/chatwidget/internal/config"
	"github.com/futurebot-ai/chatwidget/internal/ui/chat"
	"github.com/futurebot-ai/chatwidget/internal/ui/styles"
)

// =============================================================================
// CHAT (TUI)
// =============================================================================

func newChatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the chat widget (default)",
		Long: `Open the full screen chat widget.

Keys:
  Enter        send
  Alt+Enter    new line (Ctrl+J also works)
  Ctrl+L       clear the chat
  PgUp/PgDn    scroll
  Esc          quit

When stdin or stdout is not a terminal the line mode (repl) is used instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), flags)
		},
	}
}

func runChat(ctx context.Context, flags *globalFlags) error {
	if !cli.IsTTY() || !cli.IsStdoutTTY() {
		return runREPL(ctx, flags, string(cli.RenderPlain))
	}

	a, err := loadApp(ctx, flags, outputTUI)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.newConversation(ctx)
	if err != nil {
		return err
	}
	defer state.Close()

	theme := styles.NewTheme(a.cfg.UI.Theme)
	m := chat.New(ctx, state, theme, chat.OptionsFromConfig(a.cfg))
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gctx)

	if a.configPath != "" {
		g.Go(func() error {
			err := config.Watch(watchCtx, a.configPath, 0, func(cfg *config.Config, err error) {
				if err != nil {
					a.logger.Warn().Err(err).Str("path", a.configPath).Msg("Config reload failed")
					return
				}
				a.logger.Info().Str("path", a.configPath).Msg("Config reloaded")
				p.Send(chat.OptionsMsg{Options: chat.OptionsFromConfig(cfg)})
			})
			if err != nil {
				a.logger.Warn().Err(err).Msg("Config watch disabled")
			}
			return nil
		})
	}

	g.Go(func() error {
		defer stopWatch()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// =============================================================================
// REPL
// =============================================================================

func newREPLCmd(flags *globalFlags) *cobra.Command {
	var render string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Chat in line mode with input history",
		Long: `Chat one line at a time.

Commands: /help, /clear, /history, /id, /quit. Ctrl+D also quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), flags, render)
		},
	}
	cmd.Flags().StringVar(&render, "render", string(cli.RenderMarkdown), "reply rendering: markdown, code or plain")
	return cmd
}

func runREPL(ctx context.Context, flags *globalFlags, render string) error {
	mode, err := cli.ParseRenderMode(render)
	if err != nil {
		return err
	}

	a, err := loadApp(ctx, flags, outputLine)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.newConversation(ctx)
	if err != nil {
		return err
	}
	defer state.Close()

	renderer, err := cli.NewRenderer(mode, cli.TerminalWidth()-2, cli.ColorsEnabled())
	if err != nil {
		return err
	}

	var input cli.LineReader
	if cli.IsTTY() {
		history := cli.OpenHistory()
		defer history.Close()
		input = history
	} else {
		input = cli.NewScannerReader(os.Stdin, nil)
	}

	repl := cli.NewREPL(state, input, os.Stdout, renderer, a.cfg.Widget.CitationThreshold, a.logger)
	return repl.Run(ctx)
}

// =============================================================================
// ASK
// =============================================================================

func newAskCmd(flags *globalFlags) *cobra.Command {
	var (
		asJSON bool
		render string
	)
	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a single question and print the reply",
		Example: `  chatwidget ask "What does the starter plan include?"
  chatwidget ask --json --no-save "Where is the API documented?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := cli.ParseRenderMode(render)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := loadApp(ctx, flags, outputLine)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.newConversation(ctx)
			if err != nil {
				return err
			}
			defer state.Close()

			renderer, err := cli.NewRenderer(mode, cli.TerminalWidth()-2, cli.ColorsEnabled())
			if err != nil {
				return err
			}
			return cli.RunAsk(ctx, state, strings.Join(args, " "), cmd.OutOrStdout(), cli.AskOptions{
				JSON:      asJSON,
				Threshold: a.cfg.Widget.CitationThreshold,
				Renderer:  renderer,
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reply as JSON")
	cmd.Flags().StringVar(&render, "render", string(cli.RenderMarkdown), "reply rendering: markdown, code or plain")
	return cmd
}
