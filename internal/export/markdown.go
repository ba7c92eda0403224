// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/futurebot-ai/chatwidget/internal/citation"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	return []byte(e.render(t)), nil
}

func (e *MarkdownExporter) render(t *Transcript) string {
	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title(t)))
		if t.ChatID != "" {
			fmt.Fprintf(&sb, "chat_id: %s\n", escapeYAML(t.ChatID))
		}
		if !t.SavedAt.IsZero() {
			fmt.Fprintf(&sb, "saved: %s\n", t.SavedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(t.Messages))
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title(t)))

	for i, msg := range t.Messages {
		fmt.Fprintf(&sb, "### %s\n\n", msg.Role.DisplayName())
		sb.WriteString(strings.TrimSpace(msg.Text))
		sb.WriteString("\n\n")

		if cites := visibleCitations(msg, e.options.CitationThreshold); len(cites) > 0 {
			sb.WriteString("**Sources**\n\n")
			for _, c := range cites {
				fmt.Fprintf(&sb, "- [%s](%s)\n", escapeMarkdown(citation.Label(c)), c.SourceURL())
			}
			sb.WriteString("\n")
		}

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}
	return sb.String()
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break headings and links.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
	)
	return r.Replace(s)
}

// escapeYAML quotes a front matter value when it needs it.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return "\"" + s + "\""
	}
	return s
}
