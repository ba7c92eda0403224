// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurebot-ai/chatwidget/internal/conversation"
	"github.com/futurebot-ai/chatwidget/internal/model"
	"github.com/futurebot-ai/chatwidget/internal/transport"
	"github.com/futurebot-ai/chatwidget/internal/ui/styles"
)

// =============================================================================
// FAKE CONVERSATION
// =============================================================================

type fakeConversation struct {
	mu        sync.Mutex
	snap      conversation.Snapshot
	submitted []string
	clears    int
	submitErr error
	updates   chan struct{}
}

func newFakeConversation(msgs ...model.Message) *fakeConversation {
	return &fakeConversation{
		snap:    conversation.Snapshot{Messages: msgs, Phase: conversation.PhaseReady},
		updates: make(chan struct{}, 1),
	}
}

func (f *fakeConversation) Snapshot() conversation.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeConversation) Submit(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
	return f.submitErr
}

func (f *fakeConversation) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

func (f *fakeConversation) Updates() <-chan struct{} { return f.updates }

func (f *fakeConversation) set(fn func(*conversation.Snapshot)) {
	f.mu.Lock()
	fn(&f.snap)
	f.mu.Unlock()
}

func newTestModel(t *testing.T, conv *fakeConversation) Model {
	t.Helper()
	m := New(context.Background(), conv, styles.NewTheme(styles.ModeLight), DefaultOptions())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 60})
	return next.(Model)
}

func press(m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(m Model, s string) Model {
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func citationAt(source string, score float64) model.Citation {
	return model.Citation{
		Content: "fragment",
		Metadata: map[string]any{
			model.MetaSource:    source,
			model.MetaSourceURL: source,
			model.MetaScore:     score,
		},
	}
}

// =============================================================================
// NUMBERING
// =============================================================================

func TestEscapeStrayNumbering(t *testing.T) {
	zw := "​"
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello\nworld", "hello\nworld"},
		{"stray year", "2024. was a good year", "2024." + zw + " was a good year"},
		{"real list", "1. one\n2. two\n3. three", "1. one\n2. two\n3. three"},
		{"list starting later", "3. x\n4. y", "3. x\n4. y"},
		{"broken count", "1. a\nfoo\n3. c", "1." + zw + " a\nfoo\n3." + zw + " c"},
		{"no space after dot", "1.5 litres", "1.5 litres"},
		{"trailing item of list", "intro\n1. a\n2. b\ndone", "intro\n1. a\n2. b\ndone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeStrayNumbering(tt.in))
		})
	}
}

// =============================================================================
// INPUT RULES
// =============================================================================

func TestClassifyKey(t *testing.T) {
	keys := DefaultKeyMap()
	enter := tea.KeyMsg{Type: tea.KeyEnter}
	altEnter := tea.KeyMsg{Type: tea.KeyEnter, Alt: true}
	ctrlJ := tea.KeyMsg{Type: tea.KeyCtrlJ}
	ctrlL := tea.KeyMsg{Type: tea.KeyCtrlL}
	letter := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}

	tests := []struct {
		name      string
		msg       tea.KeyMsg
		composing bool
		typing    bool
		want      InputAction
	}{
		{"enter submits", enter, false, false, ActionSubmit},
		{"enter while typing is dropped", enter, false, true, ActionIgnore},
		{"enter while composing goes to input", enter, true, false, ActionInput},
		{"alt+enter inserts newline", altEnter, false, false, ActionNewline},
		{"ctrl+j inserts newline", ctrlJ, false, true, ActionNewline},
		{"ctrl+l clears", ctrlL, false, false, ActionClear},
		{"ctrl+l while typing is dropped", ctrlL, false, true, ActionIgnore},
		{"esc quits", tea.KeyMsg{Type: tea.KeyEsc}, false, false, ActionQuit},
		{"page up scrolls", tea.KeyMsg{Type: tea.KeyPgUp}, false, false, ActionScroll},
		{"letters go to input", letter, false, true, ActionInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyKey(tt.msg, keys, tt.composing, tt.typing))
		})
	}
}

// =============================================================================
// BADGE
// =============================================================================

func TestBadge(t *testing.T) {
	assert.Equal(t, "Powered by Futurebot.ai (https://futurebot.ai)", Badge(BadgeLinks{}, false))

	withPolicy := Badge(BadgeLinks{PolicyURL: "https://example.com/privacy"}, false)
	assert.Equal(t,
		"Powered by Futurebot.ai (https://futurebot.ai)  |  Privacy policy (https://example.com/privacy)",
		withPolicy)

	withAll := Badge(BadgeLinks{PolicyURL: "https://example.com/privacy", CalendlyURL: "https://calendly.com/acme"}, false)
	assert.True(t, strings.HasSuffix(withAll, "Book a call (https://calendly.com/acme)"))

	linked := Badge(BadgeLinks{}, true)
	assert.Contains(t, linked, "https://futurebot.ai")
	assert.Contains(t, linked, "Futurebot.ai")
	assert.NotContains(t, linked, "(https://futurebot.ai)")
}

// =============================================================================
// MODEL
// =============================================================================

func TestModelSubmitsOnEnter(t *testing.T) {
	conv := newFakeConversation(model.NewAgentMessage("Hi! How can I help?", nil))
	m := newTestModel(t, conv)

	m = typeText(m, "What is Futurebot?")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	assert.Equal(t, SubmitDoneMsg{}, msg)
	assert.Equal(t, []string{"What is Futurebot?"}, conv.submitted)
}

func TestModelIgnoresBlankAndBusySubmit(t *testing.T) {
	conv := newFakeConversation(model.NewAgentMessage("Hi!", nil))
	m := newTestModel(t, conv)

	m = typeText(m, "   ")
	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	conv.set(func(s *conversation.Snapshot) { s.Typing = true })
	next, _ := m.Update(StateChangedMsg{})
	m = next.(Model)
	m.input.Reset()
	m = typeText(m, "next question")
	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "next question", m.input.Value())
	assert.Empty(t, conv.submitted)
}

func TestModelNewline(t *testing.T) {
	m := newTestModel(t, newFakeConversation())
	m = typeText(m, "line one")
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	m = typeText(m, "line two")
	assert.Equal(t, "line one\nline two", m.input.Value())
}

func TestModelCompositionBlocksSubmit(t *testing.T) {
	conv := newFakeConversation()
	m := newTestModel(t, conv)
	next, _ := m.Update(CompositionMsg{Active: true})
	m = next.(Model)
	m = typeText(m, "ni")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "ni", m.input.Value())
	assert.Empty(t, conv.submitted)
}

func TestModelClear(t *testing.T) {
	conv := newFakeConversation(
		model.NewAgentMessage("Hi!", nil),
		model.NewUserMessage("q"),
		model.NewAgentMessage("a", nil),
	)
	m := newTestModel(t, conv)

	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Nil(t, cmd, "clear control hidden")

	conv.set(func(s *conversation.Snapshot) { s.ShowClearButton = true })
	next, _ := m.Update(StateChangedMsg{})
	m = next.(Model)
	assert.Contains(t, m.View(), "Clear chat")

	_, cmd = press(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, cmd)
	assert.Equal(t, ClearDoneMsg{}, cmd())
	assert.Equal(t, 1, conv.clears)
}

func TestModelStatusLine(t *testing.T) {
	m := newTestModel(t, newFakeConversation())

	next, _ := m.Update(SubmitDoneMsg{Err: &transport.Error{Kind: transport.KindNetwork, Summary: "boom"}})
	assert.Empty(t, next.(Model).status)

	next, _ = m.Update(SubmitDoneMsg{Err: conversation.ErrBusy})
	assert.Empty(t, next.(Model).status)

	next, _ = m.Update(SubmitDoneMsg{Err: errors.New("conversation: closed")})
	assert.Equal(t, "conversation: closed", next.(Model).status)
	assert.Contains(t, next.(Model).View(), "conversation: closed")
}

// =============================================================================
// VIEW
// =============================================================================

func TestViewRendersTranscript(t *testing.T) {
	agent := model.NewAgentMessage("Sure thing", []model.Citation{
		citationAt("https://docs.example.com/getting-started", 0.91),
		citationAt("https://docs.example.com/pricing", 0.5),
	})
	conv := newFakeConversation(
		model.NewAgentMessage("Welcome", nil),
		model.NewUserMessage("hello"),
		agent,
	)
	m := newTestModel(t, conv)
	view := m.View()

	assert.Contains(t, view, "Welcome")
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, "Sure thing")
	assert.Contains(t, view, "/getting-started")
	assert.NotContains(t, view, "/pricing")
	assert.Contains(t, view, "Powered by")
	assert.NotContains(t, view, typingLabel)
}

func TestViewLoadingIndicator(t *testing.T) {
	conv := newFakeConversation(model.NewAgentMessage("Welcome", nil), model.NewUserMessage("hello"))
	conv.snap.Typing = true
	m := newTestModel(t, conv)

	transcript := m.renderMessages(m.panelWidth())
	assert.Contains(t, transcript, typingLabel)

	conv.set(func(s *conversation.Snapshot) {
		s.Messages = append(s.Messages, model.NewPendingMessage())
	})
	next, _ := m.Update(StateChangedMsg{})
	m = next.(Model)
	assert.NotContains(t, m.renderMessages(m.panelWidth()), typingLabel)
}

func TestViewHidesBadge(t *testing.T) {
	opts := DefaultOptions()
	opts.ShowBadge = false
	m := New(context.Background(), newFakeConversation(), styles.NewTheme(styles.ModeLight), opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	assert.NotContains(t, next.(Model).View(), "Powered by")
}

func TestViewBeforeSize(t *testing.T) {
	m := New(context.Background(), newFakeConversation(), styles.NewTheme(styles.ModeLight), DefaultOptions())
	assert.Equal(t, "Loading...", m.View())
}

func TestModelAppliesReloadedOptions(t *testing.T) {
	m := newTestModel(t, newFakeConversation())
	assert.Contains(t, m.View(), "Powered by")

	opts := Options{ShowBadge: false, Inline: true}
	next, _ := m.Update(OptionsMsg{Options: opts})
	m = next.(Model)
	assert.NotContains(t, m.View(), "Powered by")
	assert.Equal(t, "Chat", m.opts.Title)
	assert.Equal(t, 100, m.panelWidth())
}
