// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/futurebot-ai/chatwidget/internal/model"
)

// JSONExporter writes the persisted session record. Options are ignored so
// the output can be loaded back as a session.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a transcript to the session JSON record.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	saved := t.SavedAt
	if saved.IsZero() {
		saved = time.Now()
	}
	session := model.NewSession(t.ChatID, t.Messages, saved)
	return json.MarshalIndent(session, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
