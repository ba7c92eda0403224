// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurebot-ai/chatwidget/internal/model"
)

func cite(content string, meta map[string]any) model.Citation {
	return model.Citation{Content: content, Metadata: meta}
}

func contents(cs []model.Citation) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Content
	}
	return out
}

func TestFlatten(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		m, err := Flatten(json.RawMessage(`{"sourceUrl":"https://a","score":0.9}`))
		require.NoError(t, err)
		assert.Equal(t, "https://a", m["sourceUrl"])
		assert.Equal(t, 0.9, m["score"])
	})

	t.Run("name value list", func(t *testing.T) {
		m, err := Flatten(json.RawMessage(`[{"name":"sourceUrl","value":"https://a"},{"name":"score","value":0.95}]`))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"sourceUrl": "https://a", "score": 0.95}, m)
	})

	t.Run("null", func(t *testing.T) {
		m, err := Flatten(json.RawMessage(`null`))
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("scalar rejected", func(t *testing.T) {
		_, err := Flatten(json.RawMessage(`42`))
		assert.Error(t, err)
	})
}

func TestSortByScore(t *testing.T) {
	in := []model.Citation{
		cite("none-1", map[string]any{}),
		cite("low", map[string]any{"score": 0.1}),
		cite("none-2", nil),
		cite("high", map[string]any{"score": 0.9}),
		cite("mid-a", map[string]any{"score": 0.5}),
		cite("mid-b", map[string]any{"score": 0.5}),
	}

	got := SortByScore(in)
	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low", "none-1", "none-2"}, contents(got))

	// input untouched
	assert.Equal(t, "none-1", in[0].Content)

	// idempotent
	assert.Equal(t, contents(got), contents(SortByScore(got)))
}

func TestSortByScore_UnscoredNeverPrecedeScored(t *testing.T) {
	in := []model.Citation{
		cite("u1", nil),
		cite("s1", map[string]any{"score": -5.0}),
		cite("u2", nil),
		cite("s2", map[string]any{"score": 0.0}),
	}
	got := SortByScore(in)

	seenUnscored := false
	for _, c := range got {
		_, ok := c.Score()
		if !ok {
			seenUnscored = true
			continue
		}
		assert.False(t, seenUnscored, "scored citation %q after an unscored one", c.Content)
	}
}

func TestDedupeByURL(t *testing.T) {
	in := []model.Citation{
		cite("first-a", map[string]any{"sourceUrl": "https://a.example", "score": 9.0}),
		cite("second-a", map[string]any{"sourceUrl": "https://a.example", "score": 5.0}),
		cite("empty", map[string]any{"sourceUrl": "", "score": 8.0}),
		cite("invalid-1", map[string]any{"sourceUrl": "a"}),
		cite("invalid-2", map[string]any{"sourceUrl": "a"}),
		cite("missing", nil),
	}

	got := DedupeByURL(in)
	assert.Equal(t, []string{"first-a", "empty", "invalid-1", "invalid-2", "missing"}, contents(got))
}

func TestProcess_DedupeKeepsHighestScore(t *testing.T) {
	in := []model.Citation{
		cite("low-a", map[string]any{"sourceUrl": "https://a.example", "score": 0.5}),
		cite("high-a", map[string]any{"sourceUrl": "https://a.example", "score": 0.9}),
		cite("b", map[string]any{"sourceUrl": "https://b.example", "score": 0.7}),
	}

	got := Process(in)
	assert.Equal(t, []string{"high-a", "b"}, contents(got))
	assert.Nil(t, Process(nil))
}

func TestVisible(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want bool
	}{
		{"above threshold", map[string]any{"sourceUrl": "https://a", "score": 0.9}, true},
		{"at threshold", map[string]any{"sourceUrl": "https://a", "score": DisplayThreshold}, true},
		{"below threshold", map[string]any{"sourceUrl": "https://a", "score": 0.8}, false},
		{"no url", map[string]any{"score": 0.99}, false},
		{"empty url", map[string]any{"sourceUrl": "", "score": 0.99}, false},
		{"no score", map[string]any{"sourceUrl": "https://a"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Visible(cite("x", tc.meta), DisplayThreshold))
		})
	}
}

func TestFilter(t *testing.T) {
	in := []model.Citation{
		cite("shown", map[string]any{"sourceUrl": "https://a", "score": 0.95}),
		cite("hidden", map[string]any{"sourceUrl": "https://b", "score": 0.2}),
	}
	assert.Equal(t, []string{"shown"}, contents(Filter(in, DisplayThreshold)))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "/docs/page", Label(cite("content", map[string]any{"source": "https://example.com/docs/page"})))
	assert.Equal(t, "content", Label(cite("content", map[string]any{"source": "local-file.pdf"})))
	assert.Equal(t, "content", Label(cite("content", nil)))
}

func TestValidURL(t *testing.T) {
	assert.True(t, ValidURL("https://example.com"))
	assert.True(t, ValidURL("mailto:someone@example.com"))
	assert.False(t, ValidURL(""))
	assert.False(t, ValidURL("a"))
	assert.False(t, ValidURL("/relative/path"))
	assert.False(t, ValidURL("://broken"))
}
