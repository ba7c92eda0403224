// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/futurebot-ai/chatwidget/internal/citation"
	"github.com/futurebot-ai/chatwidget/internal/model"
	"github.com/futurebot-ai/chatwidget/internal/util"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is a conversation prepared for export.
type Transcript struct {
	Title    string
	ChatID   string
	SavedAt  time.Time
	Messages []model.Message
}

// FromSession builds a transcript from a persisted session.
func FromSession(title string, s *model.Session) *Transcript {
	if s == nil {
		return nil
	}
	return &Transcript{
		Title:    title,
		ChatID:   s.ChatID,
		SavedAt:  s.SavedAt(),
		Messages: s.Messages,
	}
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written (default: current directory)
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds the chat id and save time.
	IncludeMetadata bool

	// CitationThreshold is the minimum score for a citation to be listed.
	CitationThreshold float64

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		CitationThreshold: citation.DisplayThreshold,
		Theme:             "light",
	}
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch format {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ExportToFile renders t and writes it to OutputDir. Returns the file path.
func ExportToFile(t *Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	stamp := t.SavedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	filename := fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(t.ChatID),
		stamp.Format("20060102_150405"),
		exporter.FileExtension(),
	)

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open file: %v\n", err)
		}
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func validate(t *Transcript) error {
	if t == nil {
		return fmt.Errorf("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return fmt.Errorf("transcript has no messages")
	}
	return nil
}

func title(t *Transcript) string {
	if t.Title != "" {
		return t.Title
	}
	return "Chat transcript"
}

// visibleCitations lists what the widget itself would show for msg.
func visibleCitations(msg model.Message, threshold float64) []model.Citation {
	if !msg.Role.IsAgent() {
		return nil
	}
	return citation.Filter(msg.Citations, threshold)
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	result := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}
	if len(result) == 0 {
		return "session"
	}
	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
