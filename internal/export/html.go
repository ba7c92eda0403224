// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/futurebot-ai/chatwidget/internal/citation"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a standalone HTML page. Message text
// is rendered as Markdown; raw HTML inside messages is dropped.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options: opts,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

type htmlSource struct {
	Label string
	URL   string
}

type htmlMessage struct {
	Class   string
	Role    string
	Body    template.HTML
	Sources []htmlSource
}

type htmlPage struct {
	Title    string
	Theme    string
	Meta     bool
	ChatID   string
	SavedAt  string
	Messages []htmlMessage
}

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	page := htmlPage{
		Title:  title(t),
		Theme:  e.options.Theme,
		Meta:   e.options.IncludeMetadata,
		ChatID: t.ChatID,
	}
	if page.Theme == "" {
		page.Theme = "light"
	}
	if !t.SavedAt.IsZero() {
		page.SavedAt = t.SavedAt.Format(time.RFC1123)
	}

	for _, msg := range t.Messages {
		var body bytes.Buffer
		if err := e.md.Convert([]byte(msg.Text), &body); err != nil {
			return nil, fmt.Errorf("render message %s: %w", msg.ID, err)
		}
		hm := htmlMessage{
			Class: "user",
			Role:  msg.Role.DisplayName(),
			Body:  template.HTML(body.String()), // goldmark omits raw HTML by default
		}
		if msg.Role.IsAgent() {
			hm.Class = "agent"
		}
		for _, c := range visibleCitations(msg, e.options.CitationThreshold) {
			hm.Sources = append(hm.Sources, htmlSource{Label: citation.Label(c), URL: c.SourceURL()})
		}
		page.Messages = append(page.Messages, hm)
	}

	var out bytes.Buffer
	if err := pageTemplate.Execute(&out, page); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return out.Bytes(), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<meta name="generator" content="chatwidget">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; padding: 2rem; }
body.light-theme { background: #f7f7f8; color: #1f2328; }
body.dark-theme { background: #17191c; color: #e6e6e6; }
.container { max-width: 760px; margin: 0 auto; }
.meta { font-size: 0.85rem; opacity: 0.7; margin-bottom: 1.5rem; }
.message { border-radius: 12px; padding: 0.75rem 1rem; margin: 0.75rem 0; max-width: 85%; }
.message .role { font-size: 0.75rem; font-weight: 600; opacity: 0.7; }
.user { background: #3b81f6; color: #fff; margin-left: auto; }
.agent { background: #e9eaee; color: #1f2328; }
.dark-theme .agent { background: #2a2d33; color: #e6e6e6; }
.sources { display: flex; flex-wrap: wrap; gap: 0.5rem; margin-top: 0.5rem; }
.sources a { font-size: 0.8rem; border: 1px solid currentColor; border-radius: 999px; padding: 0.1rem 0.6rem; text-decoration: none; color: inherit; }
footer { margin-top: 2rem; font-size: 0.8rem; opacity: 0.6; text-align: center; }
</style>
</head>
<body class="{{.Theme}}-theme">
<div class="container">
<h1>{{.Title}}</h1>
{{- if .Meta}}
<div class="meta">{{if .ChatID}}Chat {{.ChatID}}{{end}}{{if .SavedAt}} &middot; saved {{.SavedAt}}{{end}}</div>
{{- end}}
{{- range .Messages}}
<div class="message {{.Class}}">
<div class="role">{{.Role}}</div>
{{.Body}}
{{- if .Sources}}
<div class="sources">{{range .Sources}}<a href="{{.URL}}" target="_blank" rel="noopener">{{.Label}}</a>{{end}}</div>
{{- end}}
</div>
{{- end}}
<footer>Powered by <a href="https://futurebot.ai">Futurebot.ai</a></footer>
</div>
</body>
</html>
`))
