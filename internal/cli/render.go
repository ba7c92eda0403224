// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Reply rendering for the REPL and the ask command.
//
// Modes:
//   markdown  glamour rendering, stray "1." lines escaped like the TUI does
//   code      plain text with fenced code blocks highlighted by chroma
//   plain     text as received

package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"

	"github.com/futurebot-ai/chatwidget/internal/ui/chat"
)

// RenderMode selects how agent replies are printed.
type RenderMode string

const (
	// RenderMarkdown renders replies with glamour.
	RenderMarkdown RenderMode = "markdown"
	// RenderCode prints replies as written with fenced code highlighted.
	RenderCode RenderMode = "code"
	// RenderPlain prints replies untouched.
	RenderPlain RenderMode = "plain"
)

// ParseRenderMode validates a --render flag value.
func ParseRenderMode(s string) (RenderMode, error) {
	switch m := RenderMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RenderMarkdown, RenderCode, RenderPlain:
		return m, nil
	case "":
		return RenderMarkdown, nil
	default:
		return "", fmt.Errorf("unknown render mode %q (want markdown, code or plain)", s)
	}
}

// Renderer turns agent text into terminal output.
type Renderer struct {
	mode   RenderMode
	colors bool
	md     *glamour.TermRenderer
}

// NewRenderer creates a renderer. Without colors markdown is rendered with
// the notty style.
func NewRenderer(mode RenderMode, width int, colors bool) (*Renderer, error) {
	r := &Renderer{mode: mode, colors: colors}
	if mode != RenderMarkdown {
		return r, nil
	}

	style := glamour.WithStandardStyle("notty")
	if colors {
		style = glamour.WithAutoStyle()
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	r.md = md
	return r, nil
}

// Render formats one reply.
func (r *Renderer) Render(text string) string {
	switch r.mode {
	case RenderMarkdown:
		out, err := r.md.Render(chat.EscapeStrayNumbering(text))
		if err != nil {
			return text
		}
		return strings.Trim(out, "\n")
	case RenderCode:
		if !r.colors {
			return text
		}
		return HighlightFences(text)
	default:
		return text
	}
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

const ansiReset = "\x1b[0m"

// HighlightFences highlights the bodies of ``` fenced blocks and leaves the
// rest of text alone. An unterminated fence is highlighted to the end.
func HighlightFences(text string) string {
	lines := strings.Split(text, "\n")
	var out, block []string
	lang := ""
	inFence := false

	flush := func() {
		code := strings.TrimRight(highlightCode(strings.Join(block, "\n"), lang), "\n")
		if strings.HasSuffix(code, "\n"+ansiReset) {
			code = strings.TrimSuffix(code, "\n"+ansiReset) + ansiReset
		}
		out = append(out, code)
		block = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				flush()
				inFence = false
			} else {
				inFence = true
				lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			}
			out = append(out, line)
			continue
		}
		if inFence {
			block = append(block, line)
			continue
		}
		out = append(out, line)
	}
	if inFence && len(block) > 0 {
		flush()
	}
	return strings.Join(out, "\n")
}

func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
