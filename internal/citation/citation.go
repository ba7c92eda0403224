// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/futurebot-ai/chatwidget/internal/model"
)

// DisplayThreshold is the minimum score a citation needs to be shown.
const DisplayThreshold = 0.822

// =============================================================================
// NORMALIZATION
// =============================================================================

// namedValue is one entry of the list-shaped metadata some vector stores
// return instead of a plain object.
type namedValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Flatten decodes raw metadata that is either a JSON object or a list of
// {name, value} pairs into a flat map. Later duplicates of a name win.
// null and empty input yield a nil map.
func Flatten(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode metadata object: %w", err)
		}
		return m, nil
	case '[':
		var pairs []namedValue
		if err := json.Unmarshal(raw, &pairs); err != nil {
			return nil, fmt.Errorf("decode metadata list: %w", err)
		}
		m := make(map[string]any, len(pairs))
		for _, p := range pairs {
			m[p.Name] = p.Value
		}
		return m, nil
	default:
		return nil, fmt.Errorf("metadata must be an object or a list, got %q", raw[:1])
	}
}

// =============================================================================
// RANKING
// =============================================================================

// SortByScore returns a copy of cs ordered by descending score. Citations
// without a score follow every scored one; ties keep their input order.
func SortByScore(cs []model.Citation) []model.Citation {
	out := append([]model.Citation(nil), cs...)
	sort.SliceStable(out, func(i, j int) bool {
		si, iok := out[i].Score()
		sj, jok := out[j].Score()
		switch {
		case iok && jok:
			return si > sj
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}

// DedupeByURL keeps the first citation for each distinct valid sourceUrl.
// Citations whose sourceUrl is absent or invalid are always kept.
func DedupeByURL(cs []model.Citation) []model.Citation {
	seen := make(map[string]bool, len(cs))
	out := make([]model.Citation, 0, len(cs))
	for _, c := range cs {
		u := c.SourceURL()
		if !ValidURL(u) {
			out = append(out, c)
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, c)
	}
	return out
}

// Process sorts then deduplicates. It is applied whenever a message acquires
// citations.
func Process(cs []model.Citation) []model.Citation {
	if len(cs) == 0 {
		return nil
	}
	return DedupeByURL(SortByScore(cs))
}

// =============================================================================
// PRESENTATION
// =============================================================================

// Visible reports whether c should be rendered: it needs a non-empty
// sourceUrl and a score at or above threshold.
func Visible(c model.Citation, threshold float64) bool {
	if c.SourceURL() == "" {
		return false
	}
	score, ok := c.Score()
	return ok && score >= threshold
}

// Filter returns the citations that pass Visible.
func Filter(cs []model.Citation, threshold float64) []model.Citation {
	var out []model.Citation
	for _, c := range cs {
		if Visible(c, threshold) {
			out = append(out, c)
		}
	}
	return out
}

// Label is the text shown on a citation chip: the path of the source URL
// when source parses as one, otherwise the page content.
func Label(c model.Citation) string {
	if src := c.Source(); ValidURL(src) {
		if u, err := url.Parse(src); err == nil && u.Path != "" {
			return u.Path
		}
	}
	return c.Content
}

// ValidURL reports whether s is an absolute URL.
func ValidURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}
