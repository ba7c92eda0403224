// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/futurebot-ai/chatwidget/internal/citation"
	"github.com/futurebot-ai/chatwidget/internal/model"
	"github.com/futurebot-ai/chatwidget/internal/util"
)

const (
	chipLabelWidth = 32
	typingLabel    = "Assistant is typing"
	clearLabel     = "Clear chat"
)

// View renders the widget.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderHint(),
	}
	if m.opts.ShowBadge {
		sections = append(sections, m.renderBadge())
	}
	body := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.opts.Inline {
		return body
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, body)
}

// =============================================================================
// HEADER, INPUT AND FOOTER
// =============================================================================

func (m Model) renderHeader() string {
	w := m.panelWidth()
	title := m.theme.HeaderTitle.Render(m.opts.Title)

	var clear string
	if m.snap.ShowClearButton {
		label := m.keys.Clear.Help().Key + " " + clearLabel
		if m.snap.Typing {
			clear = m.theme.ClearDisabled.Render(label)
		} else {
			clear = m.theme.ClearControl.Render(label)
		}
	}

	inner := w - m.theme.Header.GetHorizontalFrameSize()
	gap := inner - lipgloss.Width(title) - lipgloss.Width(clear)
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(w).Render(title + strings.Repeat(" ", gap) + clear)
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.panelWidth()).Render(m.input.View())
}

func (m Model) renderHint() string {
	if m.status != "" {
		return m.theme.ErrorText.Render(util.TruncateWidth(m.status, m.panelWidth()))
	}
	if m.snap.Typing {
		return m.theme.Loading.Render(m.spinner.View() + " " + typingLabel)
	}
	hints := []string{
		m.keys.Submit.Help().Key + " " + m.keys.Submit.Help().Desc,
		m.keys.Newline.Help().Key + " " + m.keys.Newline.Help().Desc,
		m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc,
	}
	return m.theme.Hint.Render(util.TruncateWidth(strings.Join(hints, " • "), m.panelWidth()))
}

func (m Model) renderBadge() string {
	hyperlinks := m.theme.ColorProfile != termenv.Ascii
	return m.theme.Badge.Width(m.panelWidth()).Render(Badge(m.opts.Links, hyperlinks))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderMessages renders every message followed, when the agent has not
// started answering the last question yet, by the loading indicator.
func (m Model) renderMessages(width int) string {
	msgs := m.snap.Messages
	bubbleWidth := max(width*4/5, 20)

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == model.RoleUser {
			b.WriteString(m.renderUser(msg, width, bubbleWidth))
			if m.snap.Typing && i == len(msgs)-1 {
				b.WriteString("\n\n")
				b.WriteString(m.theme.Loading.Render(m.spinner.View() + " " + typingLabel))
			}
			continue
		}
		b.WriteString(m.renderAgent(msg, bubbleWidth))
		if chips := m.renderCitations(msg.Citations, width); chips != "" {
			b.WriteString("\n")
			b.WriteString(chips)
		}
	}
	return b.String()
}

func (m Model) renderUser(msg model.Message, width, bubbleWidth int) string {
	style := m.theme.UserBubble
	textWidth := 0
	for _, line := range strings.Split(msg.Text, "\n") {
		textWidth = max(textWidth, util.StringWidth(line))
	}
	inner := min(textWidth, bubbleWidth-style.GetHorizontalFrameSize())
	bubble := style.Width(inner + style.GetHorizontalPadding()).Render(msg.Text)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
}

func (m Model) renderAgent(msg model.Message, bubbleWidth int) string {
	style := m.theme.AgentBubble
	if strings.TrimSpace(msg.Text) == "" {
		return style.Render(m.spinner.View())
	}
	body := m.md.render(msg.Text, bubbleWidth-style.GetHorizontalFrameSize())
	return style.Render(body)
}

// renderCitations lays the visible citations out as chips, wrapping rows
// at width.
func (m Model) renderCitations(cs []model.Citation, width int) string {
	visible := citation.Filter(cs, m.opts.CitationThreshold)
	if len(visible) == 0 {
		return ""
	}

	var rows []string
	var row []string
	rowWidth := 0
	for _, c := range visible {
		chip := m.theme.CitationChip.Render(util.TruncateWidth(citation.Label(c), chipLabelWidth))
		cw := lipgloss.Width(chip) + 1
		if len(row) > 0 && rowWidth+cw > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, rowWidth = nil, 0
		}
		if len(row) > 0 {
			row = append(row, " ")
		}
		row = append(row, chip)
		rowWidth += cw
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
