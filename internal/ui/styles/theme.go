// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds the styles of the chat widget.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	UserBubble  lipgloss.Style
	AgentBubble lipgloss.Style
	Loading     lipgloss.Style

	CitationChip lipgloss.Style

	InputContainer   lipgloss.Style
	InputPlaceholder lipgloss.Style
	Hint             lipgloss.Style
	ClearControl     lipgloss.Style
	ClearDisabled    lipgloss.Style

	Badge     lipgloss.Style
	BadgeLink lipgloss.Style

	ErrorText lipgloss.Style
}

// NewTheme builds a theme. mode is "auto", "dark" or "light"; auto asks the
// terminal for its background.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Brand)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		Padding(0, 1).
		MarginLeft(4)

	t.AgentBubble = lipgloss.NewStyle().
		Foreground(AgentBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AgentBubbleBorder).
		Padding(0, 1).
		MarginRight(4)

	t.Loading = lipgloss.NewStyle().
		Foreground(Amber)

	t.CitationChip = lipgloss.NewStyle().
		Foreground(Accent).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Accent).
		Padding(0, 1)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Hint = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ClearControl = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	t.ClearDisabled = lipgloss.NewStyle().
		Foreground(TextMuted).
		Strikethrough(true)

	t.Badge = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Align(lipgloss.Center)

	t.BadgeLink = lipgloss.NewStyle().
		Foreground(Brand).
		Bold(true)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)
}
