// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
)

var numberedLine = regexp.MustCompile(`^(\d+)\.\s+`)

// zeroWidthSpace keeps "N." from starting a Markdown list.
const zeroWidthSpace = "​"

// EscapeStrayNumbering stops lines such as "2024. was a good year" from
// rendering as ordered lists. A numbered line is left alone when it follows
// a list item or the next line continues the count.
func EscapeStrayNumbering(text string) string {
	lines := strings.Split(text, "\n")
	prevWasItem := false
	for i, line := range lines {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			prevWasItem = false
			continue
		}

		continues := false
		if n, err := strconv.Atoi(m[1]); err == nil && i+1 < len(lines) {
			continues = strings.HasPrefix(lines[i+1], strconv.Itoa(n+1)+".")
		}
		if prevWasItem || continues {
			prevWasItem = true
			continue
		}

		lines[i] = m[1] + "." + zeroWidthSpace + line[len(m[1])+1:]
		prevWasItem = false
	}
	return strings.Join(lines, "\n")
}

// markdownRenderer renders agent text, rebuilding the glamour renderer only
// when the wrap width changes.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func (r *markdownRenderer) render(text string, width int) string {
	if width < 10 {
		width = 10
	}
	if r.renderer == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		r.renderer = tr
		r.width = width
	}
	out, err := r.renderer.Render(EscapeStrayNumbering(text))
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
