// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question for the chatwidget CLI.
//
// Command: ask [question]
// Short:   Ask a single question
//
// Examples:
//   chatwidget ask "How do I reset my password?"
//   chatwidget ask --json "What does the pro plan include?"
//   chatwidget ask --render plain "Where are the docs?"
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/futurebot-ai/chatwidget/internal/citation"
	"github.com/futurebot-ai/chatwidget/internal/model"
	"github.com/futurebot-ai/chatwidget/internal/transport"
)

// AskResult is the JSON shape printed by `ask --json`.
type AskResult struct {
	ChatID    string           `json:"chatId"`
	Text      string           `json:"text"`
	Citations []model.Citation `json:"sourceDocuments"`
	Error     string           `json:"error,omitempty"`
}

// AskOptions controls a one-shot question.
type AskOptions struct {
	JSON      bool
	Threshold float64
	Renderer  *Renderer
}

// RunAsk asks one question and prints the reply. With JSON only citations
// that clear the threshold are included. The transport error, if any, is
// returned after the reply has been printed.
func RunAsk(ctx context.Context, s Session, question string, out io.Writer, opts AskOptions) error {
	if opts.Threshold <= 0 {
		opts.Threshold = citation.DisplayThreshold
	}

	msgs, err := Ask(ctx, s, question)
	if msgs == nil && err != nil {
		return err
	}
	agent := replies(msgs)

	result := AskResult{ChatID: s.Snapshot().ChatID}
	if len(agent) > 0 {
		last := agent[len(agent)-1]
		result.Text = last.Text
		result.Citations = citation.Filter(last.Citations, opts.Threshold)
	}
	if err != nil {
		result.Error = transport.Summary(err)
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			return fmt.Errorf("encode reply: %w", encErr)
		}
		return err
	}

	text := result.Text
	if opts.Renderer != nil {
		text = opts.Renderer.Render(text)
	}
	fmt.Fprintln(out, text)
	printSources(out, result.Citations, opts.Threshold)
	return err
}
