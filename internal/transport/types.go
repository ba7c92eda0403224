// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/futurebot-ai/chatwidget/internal/citation"
	"github.com/futurebot-ai/chatwidget/internal/model"
)

// Request is the prediction payload.
type Request struct {
	Question       string              `json:"question"`
	History        []model.HistoryItem `json:"history"`
	OverrideConfig map[string]any      `json:"overrideConfig,omitempty"`

	// Stream mode
	SocketClientID string `json:"socketIOClientId,omitempty"`
	ChatID         string `json:"chatId,omitempty"`

	// Request mode
	WebRequestChatID string `json:"webRequestChatId,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
}

// Reply is a completed agent answer.
type Reply struct {
	Text      string
	Citations []model.Citation
}

// document is a source document as the backend sends it. Metadata may be
// an object or a list of {name, value} pairs.
type document struct {
	PageContent string          `json:"pageContent"`
	Metadata    json.RawMessage `json:"metadata"`
}

type replyBody struct {
	Text            *string    `json:"text"`
	SourceDocuments []document `json:"sourceDocuments"`
}

// DecodeReply parses a prediction response body. The body is either an
// object with text and optional sourceDocuments, a JSON string, or plain
// text.
func DecodeReply(data []byte) (*Reply, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty reply body")
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return nil, fmt.Errorf("decode reply string: %w", err)
		}
		return &Reply{Text: text}, nil

	case '{':
		var body replyBody
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("decode reply object: %w", err)
		}
		if body.Text == nil {
			return nil, errors.New("reply object has no text field")
		}
		citations, err := DecodeDocuments(body.SourceDocuments)
		if err != nil {
			return nil, err
		}
		return &Reply{Text: *body.Text, Citations: citations}, nil

	case '[':
		return nil, errors.New("reply body is a list")

	default:
		if json.Valid(data) {
			return nil, fmt.Errorf("unexpected reply body %q", data)
		}
		return &Reply{Text: string(data)}, nil
	}
}

// DecodeDocuments normalizes wire documents into citations.
func DecodeDocuments(docs []document) ([]model.Citation, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]model.Citation, 0, len(docs))
	for i, d := range docs {
		meta, err := citation.Flatten(d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("source document %d: %w", i, err)
		}
		out = append(out, model.Citation{Content: d.PageContent, Metadata: meta})
	}
	return out, nil
}

// decodeDocumentsJSON decodes a raw sourceDocuments array.
func decodeDocumentsJSON(raw json.RawMessage) ([]model.Citation, error) {
	var docs []document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode source documents: %w", err)
	}
	return DecodeDocuments(docs)
}
