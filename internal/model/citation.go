// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Conventional metadata keys.
const (
	MetaSource    = "source"
	MetaSourceURL = "sourceUrl"
	MetaScore     = "score"
)

// Citation is a source fragment supporting an agent message.
type Citation struct {
	Content  string         `json:"pageContent"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SourceURL returns the sourceUrl metadata value, or "" when absent or not a
// string.
func (c Citation) SourceURL() string {
	return c.stringMeta(MetaSourceURL)
}

// Source returns the source metadata value.
func (c Citation) Source() string {
	return c.stringMeta(MetaSource)
}

// Score returns the numeric score metadata and whether one is present.
// Numeric strings count as scores.
func (c Citation) Score() (float64, bool) {
	v, ok := c.Metadata[MetaScore]
	if !ok || v == nil {
		return 0, false
	}
	switch s := v.(type) {
	case float64:
		return s, true
	case float32:
		return float64(s), true
	case int:
		return float64(s), true
	case int64:
		return float64(s), true
	case json.Number:
		f, err := s.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (c Citation) stringMeta(key string) string {
	v, ok := c.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone returns a copy with its own metadata map.
func (c Citation) Clone() Citation {
	out := Citation{Content: c.Content}
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
