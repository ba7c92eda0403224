// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/futurebot-ai/chatwidget/internal/citation"
	"github.com/futurebot-ai/chatwidget/internal/config"
	"github.com/futurebot-ai/chatwidget/internal/conversation"
	"github.com/futurebot-ai/chatwidget/internal/transport"
	"github.com/futurebot-ai/chatwidget/internal/ui/styles"
)

// bubblePanelWidth caps the panel width in bubble placement.
const bubblePanelWidth = 72

// Conversation is the slice of conversation.State the view drives.
type Conversation interface {
	Snapshot() conversation.Snapshot
	Submit(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	Updates() <-chan struct{}
}

// Options controls presentation.
type Options struct {
	Title             string
	Placeholder       string
	Inline            bool
	CitationThreshold float64
	ShowBadge         bool
	Links             BadgeLinks
}

// DefaultOptions returns the presentation defaults.
func DefaultOptions() Options {
	return Options{
		Title:             "Chat",
		Placeholder:       "Type your question",
		CitationThreshold: citation.DisplayThreshold,
		ShowBadge:         true,
	}
}

// OptionsFromConfig maps the widget and UI configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Inline = cfg.Widget.Inline()
	opts.ShowBadge = cfg.UI.ShowBadge
	if cfg.Widget.CitationThreshold > 0 {
		opts.CitationThreshold = cfg.Widget.CitationThreshold
	}
	opts.Links.PolicyURL = cfg.Widget.PolicyURL
	if cfg.Widget.UseCalendly {
		opts.Links.CalendlyURL = cfg.Widget.CalendlyURL
	}
	return opts
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat widget.
type Model struct {
	ctx   context.Context
	conv  Conversation
	theme *styles.Theme
	opts  Options
	keys  KeyMap

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	md       *markdownRenderer

	snap      conversation.Snapshot
	composing bool
	status    string

	width    int
	height   int
	ready    bool
	quitting bool
}

// New creates the model. ctx bounds every submission made from the view.
func New(ctx context.Context, conv Conversation, theme *styles.Theme, opts Options) Model {
	if opts.CitationThreshold <= 0 {
		opts.CitationThreshold = citation.DisplayThreshold
	}

	ta := textarea.New()
	ta.Placeholder = opts.Placeholder
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Loading

	return Model{
		ctx:      ctx,
		conv:     conv,
		theme:    theme,
		opts:     opts,
		keys:     DefaultKeyMap(),
		viewport: viewport.New(0, 0),
		input:    ta,
		spinner:  sp,
		md:       &markdownRenderer{style: theme.GlamourStyle()},
		snap:     conv.Snapshot(),
	}
}

// Init starts the cursor blink, the spinner and the update subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitForUpdate(m.conv.Updates()),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case CompositionMsg:
		m.composing = msg.Active
		return m, nil

	case OptionsMsg:
		m.applyOptions(msg.Options)
		return m, nil

	case StateChangedMsg:
		m.sync()
		return m, waitForUpdate(m.conv.Updates())

	case updatesClosedMsg:
		return m, nil

	case SubmitDoneMsg:
		m.status = statusFor(msg.Err)
		m.sync()
		return m, nil

	case ClearDoneMsg:
		m.status = statusFor(msg.Err)
		m.sync()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.snap.Typing {
			m.refresh()
		}
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch ClassifyKey(msg, m.keys, m.composing, m.snap.Typing) {
	case ActionQuit:
		m.quitting = true
		return m, tea.Quit

	case ActionIgnore:
		return m, nil

	case ActionSubmit:
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input.Reset()
		m.status = ""
		return m, submitCmd(m.ctx, m.conv, text)

	case ActionNewline:
		m.input.InsertString("\n")
		return m, nil

	case ActionClear:
		if !m.snap.ShowClearButton {
			return m, nil
		}
		return m, clearCmd(m.ctx, m.conv)

	case ActionScroll:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) applyOptions(opts Options) {
	if opts.Title == "" {
		opts.Title = m.opts.Title
	}
	if opts.Placeholder == "" {
		opts.Placeholder = m.opts.Placeholder
	}
	if opts.CitationThreshold <= 0 {
		opts.CitationThreshold = citation.DisplayThreshold
	}
	m.opts = opts
	m.input.Placeholder = opts.Placeholder
	if m.ready {
		m.layout()
	}
}

// sync pulls a fresh snapshot and re-renders the transcript.
func (m *Model) sync() {
	m.snap = m.conv.Snapshot()
	m.refresh()
}

// statusFor returns the status line for an operation result. Transport
// failures already show up in the transcript, and busy or empty input is
// silently dropped.
func statusFor(err error) string {
	if err == nil {
		return ""
	}
	var terr *transport.Error
	switch {
	case errors.As(err, &terr),
		errors.Is(err, conversation.ErrEmpty),
		errors.Is(err, conversation.ErrBusy):
		return ""
	default:
		return err.Error()
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

// panelWidth is the width of the widget: the full terminal inline, a
// capped panel in bubble placement.
func (m Model) panelWidth() int {
	if m.opts.Inline || m.width < bubblePanelWidth {
		return m.width
	}
	return bubblePanelWidth
}

func (m *Model) layout() {
	w := m.panelWidth()
	m.input.SetWidth(max(w-m.theme.InputContainer.GetHorizontalFrameSize(), 10))

	chrome := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderInput()) + 1
	if m.opts.ShowBadge {
		chrome++
	}
	m.viewport.Width = w
	m.viewport.Height = max(m.height-chrome, 3)
	m.refresh()
}

// refresh re-renders the transcript and keeps it scrolled to the end.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages(m.panelWidth()))
	m.viewport.GotoBottom()
}
