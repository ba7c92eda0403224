// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Interactive line-mode chat.
//
// USABILITY: line editing and history for a better CLI experience
//
// Reads questions with liner when attached to a terminal and from a plain
// scanner otherwise. History lives in ~/.chatwidget/repl_history.
//
// Commands:
//   /help            list commands
//   /clear           start over with the welcome message
//   /history         print the transcript
//   /id              print the chat id
//   /quit, /exit     leave
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/futurebot-ai/chatwidget/internal/citation"
	"github.com/futurebot-ai/chatwidget/internal/config"
	"github.com/futurebot-ai/chatwidget/internal/conversation"
	"github.com/futurebot-ai/chatwidget/internal/model"
)

const (
	userPrompt  = "you> "
	historyName = "repl_history"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// LineReader reads prompted lines. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// ScannerReader reads lines from a non-interactive source such as a pipe.
type ScannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewScannerReader reads from r and echoes prompts to out.
func NewScannerReader(r io.Reader, out io.Writer) *ScannerReader {
	return &ScannerReader{scanner: bufio.NewScanner(r), out: out}
}

// Prompt implements LineReader.
func (s *ScannerReader) Prompt(prompt string) (string, error) {
	if s.out != nil {
		fmt.Fprint(s.out, prompt)
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

// AppendHistory implements LineReader.
func (s *ScannerReader) AppendHistory(string) {}

// History wraps a liner state with a persistent history file.
type History struct {
	*liner.State
	path string
}

// OpenHistory starts liner with the history stored under the config
// directory.
func OpenHistory() *History {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	h := &History{State: line, path: filepath.Join(dir, historyName)}
	if f, err := os.Open(h.path); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return h
}

// Close saves the history and restores the terminal.
func (h *History) Close() error {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = h.WriteHistory(f)
			f.Close()
		}
	}
	return h.State.Close()
}

// =============================================================================
// REPL
// =============================================================================

// REPL is the interactive line front end.
type REPL struct {
	session   Session
	input     LineReader
	out       io.Writer
	renderer  *Renderer
	threshold float64
	logger    zerolog.Logger
}

// NewREPL wires a REPL. A zero threshold uses the default citation score.
func NewREPL(session Session, input LineReader, out io.Writer, renderer *Renderer, threshold float64, logger zerolog.Logger) *REPL {
	if threshold <= 0 {
		threshold = citation.DisplayThreshold
	}
	return &REPL{
		session:   session,
		input:     input,
		out:       out,
		renderer:  renderer,
		threshold: threshold,
		logger:    logger,
	}
}

// Run prints the current transcript and reads questions until EOF, Ctrl+C
// or /quit.
func (r *REPL) Run(ctx context.Context) error {
	r.printTranscript(r.session.Snapshot().Messages)
	mutedColor.Fprintln(r.out, "Type /help for commands.")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := r.input.Prompt(userPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.input.AppendHistory(line)

		if strings.HasPrefix(line, "/") || line == "exit" || line == "quit" {
			if !r.command(ctx, line) {
				return nil
			}
			continue
		}
		r.ask(ctx, line)
	}
}

func (r *REPL) ask(ctx context.Context, text string) {
	msgs, err := Ask(ctx, r.session, text)
	switch {
	case errors.Is(err, conversation.ErrBusy):
		PrintWarning(r.out, "The assistant is still typing.")
		return
	case errors.Is(err, conversation.ErrEmpty):
		return
	case errors.Is(err, conversation.ErrNotMounted), errors.Is(err, conversation.ErrClosed):
		PrintError(r.out, "%v", err)
		return
	case err != nil:
		r.logger.Debug().Err(err).Msg("Exchange failed")
	}
	r.printTranscript(replies(msgs))
}

// command runs a slash command and reports whether the loop continues.
func (r *REPL) command(ctx context.Context, line string) bool {
	name := strings.ToLower(strings.Fields(line)[0])
	switch name {
	case "/quit", "/q", "/exit", "exit", "quit":
		return false
	case "/help", "/h":
		r.printHelp()
	case "/clear", "/c":
		if err := r.session.Clear(ctx); err != nil {
			PrintError(r.out, "Could not clear chat: %v", err)
			break
		}
		PrintSuccess(r.out, "Chat cleared.")
		r.printTranscript(r.session.Snapshot().Messages)
	case "/history":
		r.printTranscript(r.session.Snapshot().Messages)
	case "/id":
		PrintInfo(r.out, "Chat ID: %s", r.session.Snapshot().ChatID)
	default:
		PrintWarning(r.out, "Unknown command %s. Type /help.", name)
	}
	return true
}

func (r *REPL) printHelp() {
	rows := [][2]string{
		{"/help", "Show this help"},
		{"/clear", "Clear the chat"},
		{"/history", "Print the transcript"},
		{"/id", "Show the chat ID"},
		{"/quit", "Leave"},
	}
	for _, row := range rows {
		fmt.Fprintf(r.out, "  %-10s %s\n", row[0], row[1])
	}
}

func (r *REPL) printTranscript(msgs []model.Message) {
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			promptColor.Fprint(r.out, userPrompt)
			fmt.Fprintln(r.out, m.Text)
			continue
		}
		agentColor.Fprintln(r.out, m.Role.DisplayName()+":")
		fmt.Fprintln(r.out, r.renderer.Render(m.Text))
		printSources(r.out, m.Citations, r.threshold)
		fmt.Fprintln(r.out)
	}
}
