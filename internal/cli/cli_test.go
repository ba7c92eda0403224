// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurebot-ai/chatwidget/internal/conversation"
	"github.com/futurebot-ai/chatwidget/internal/model"
	"github.com/futurebot-ai/chatwidget/internal/transport"
)

// fakeSession answers every question synchronously.
type fakeSession struct {
	mu      sync.Mutex
	msgs    []model.Message
	reply   model.Message
	err     error
	clears  int
	updates chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		msgs:    []model.Message{model.NewAgentMessage("Hi! What do you want to know?", nil)},
		reply:   model.NewAgentMessage("Here you go", nil),
		updates: make(chan struct{}, 1),
	}
}

func (f *fakeSession) Snapshot() conversation.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return conversation.Snapshot{
		Messages: append([]model.Message(nil), f.msgs...),
		Phase:    conversation.PhaseReady,
		ChatID:   "chat-1",
	}
}

func (f *fakeSession) Submit(_ context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return conversation.ErrEmpty
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, model.NewUserMessage(text), f.reply)
	return f.err
}

func (f *fakeSession) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.msgs = f.msgs[:1]
	return nil
}

func (f *fakeSession) Updates() <-chan struct{} { return f.updates }

func plainRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(RenderPlain, 80, false)
	require.NoError(t, err)
	return r
}

func sourced(source string, score float64) model.Citation {
	return model.Citation{
		Content: "fragment",
		Metadata: map[string]any{
			model.MetaSource:    source,
			model.MetaSourceURL: source,
			model.MetaScore:     score,
		},
	}
}

func TestMain(m *testing.M) {
	ForceColorsEnabled(false)
	m.Run()
}

// =============================================================================
// ASK
// =============================================================================

func TestAskReturnsExchange(t *testing.T) {
	s := newFakeSession()
	msgs, err := Ask(context.Background(), s, "question")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "Here you go", msgs[1].Text)
}

func TestAskBlankInput(t *testing.T) {
	msgs, err := Ask(context.Background(), newFakeSession(), "  ")
	assert.ErrorIs(t, err, conversation.ErrEmpty)
	assert.Nil(t, msgs)
}

func TestRunAskText(t *testing.T) {
	s := newFakeSession()
	s.reply = model.NewAgentMessage("Pricing starts at 10 EUR", []model.Citation{
		sourced("https://docs.example.com/pricing", 0.95),
		sourced("https://docs.example.com/blog", 0.2),
	})

	var out bytes.Buffer
	err := RunAsk(context.Background(), s, "price?", &out, AskOptions{Renderer: plainRenderer(t)})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Pricing starts at 10 EUR")
	assert.Contains(t, out.String(), "Sources:")
	assert.Contains(t, out.String(), "/pricing https://docs.example.com/pricing")
	assert.NotContains(t, out.String(), "/blog")
}

func TestRunAskJSON(t *testing.T) {
	s := newFakeSession()
	s.reply = model.NewAgentMessage("Hello", []model.Citation{
		sourced("https://docs.example.com/a", 0.9),
		sourced("https://docs.example.com/b", 0.1),
	})

	var out bytes.Buffer
	require.NoError(t, RunAsk(context.Background(), s, "hi", &out, AskOptions{JSON: true}))

	var got AskResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "chat-1", got.ChatID)
	assert.Equal(t, "Hello", got.Text)
	require.Len(t, got.Citations, 1)
	assert.Equal(t, "https://docs.example.com/a", got.Citations[0].SourceURL())
	assert.Empty(t, got.Error)
}

func TestRunAskTransportError(t *testing.T) {
	s := newFakeSession()
	s.reply = model.NewAgentMessage("500: Internal Server Error", nil)
	s.err = &transport.Error{Kind: transport.KindStatus, Summary: "500: Internal Server Error", Status: 500}

	var out bytes.Buffer
	err := RunAsk(context.Background(), s, "hi", &out, AskOptions{JSON: true})
	require.Error(t, err)
	assert.True(t, transport.IsStatus(err, 500))

	var got AskResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "500: Internal Server Error", got.Error)
	assert.Equal(t, "500: Internal Server Error", got.Text)
}

// =============================================================================
// REPL
// =============================================================================

func TestREPLSession(t *testing.T) {
	s := newFakeSession()
	in := strings.NewReader("what is this?\n\n/id\n/clear\n/bogus\n/quit\nnever asked\n")
	var out bytes.Buffer

	repl := NewREPL(s, NewScannerReader(in, nil), &out, plainRenderer(t), 0, zerolog.Nop())
	require.NoError(t, repl.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Hi! What do you want to know?")
	assert.Contains(t, text, "Here you go")
	assert.Contains(t, text, "Chat ID: chat-1")
	assert.Contains(t, text, "Chat cleared.")
	assert.Contains(t, text, "Unknown command /bogus")
	assert.Equal(t, 1, s.clears)

	snap := s.Snapshot()
	for _, m := range snap.Messages {
		assert.NotEqual(t, "never asked", m.Text)
	}
}

func TestREPLStopsAtEOF(t *testing.T) {
	s := newFakeSession()
	var out bytes.Buffer
	repl := NewREPL(s, NewScannerReader(strings.NewReader("one\n"), &out), &out, plainRenderer(t), 0, zerolog.Nop())
	require.NoError(t, repl.Run(context.Background()))
	assert.Len(t, s.Snapshot().Messages, 3)
	assert.Contains(t, out.String(), userPrompt)
}

// =============================================================================
// RENDERING
// =============================================================================

func TestParseRenderMode(t *testing.T) {
	for in, want := range map[string]RenderMode{
		"":         RenderMarkdown,
		"markdown": RenderMarkdown,
		" CODE ":   RenderCode,
		"plain":    RenderPlain,
	} {
		got, err := ParseRenderMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseRenderMode("html")
	assert.Error(t, err)
}

func TestHighlightFences(t *testing.T) {
	text := "Run this:\n```go\nfmt.Println(\"hi\")\n```\nDone."
	out := HighlightFences(text)

	assert.True(t, strings.HasPrefix(out, "Run this:\n```go\n"))
	assert.True(t, strings.HasSuffix(out, "\n```\nDone."))
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "Println")
}

func TestHighlightFencesWithoutCode(t *testing.T) {
	text := "no code here\n2024. a year"
	assert.Equal(t, text, HighlightFences(text))
}

func TestRendererModes(t *testing.T) {
	code, err := NewRenderer(RenderCode, 80, false)
	require.NoError(t, err)
	text := "```go\nx := 1\n```"
	assert.Equal(t, text, code.Render(text), "no highlighting without colors")

	md, err := NewRenderer(RenderMarkdown, 80, false)
	require.NoError(t, err)
	assert.Contains(t, md.Render("**bold** move"), "bold")
}
