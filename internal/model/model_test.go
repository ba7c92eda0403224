// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_AppendTokenConcatenates(t *testing.T) {
	msg := NewPendingMessage()
	if !msg.IsPending() {
		t.Fatal("new placeholder should be pending")
	}

	fragments := []string{"Hi", " there", ", ", "friend"}
	for _, f := range fragments {
		msg.AppendToken(f)
	}

	if msg.Text != strings.Join(fragments, "") {
		t.Errorf("Text = %q, want %q", msg.Text, strings.Join(fragments, ""))
	}
	if msg.Role != RoleAgent {
		t.Errorf("Role = %q, want %q after first token", msg.Role, RoleAgent)
	}
}

func TestMessage_SetCitationsReplacesWholesale(t *testing.T) {
	msg := NewAgentMessage("answer", []Citation{{Content: "old"}})
	msg.SetCitations([]Citation{{Content: "a"}, {Content: "b"}})

	if len(msg.Citations) != 2 || msg.Citations[0].Content != "a" {
		t.Errorf("Citations = %+v, want [a b]", msg.Citations)
	}

	msg.SetCitations(nil)
	if msg.Citations != nil {
		t.Errorf("Citations = %+v, want nil", msg.Citations)
	}
}

func TestMessage_JSONWireNames(t *testing.T) {
	msg := Message{Role: RoleUser, Text: "hello"}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"type":"userMessage"`) || !strings.Contains(got, `"message":"hello"`) {
		t.Errorf("Marshal = %s, want type/message wire names", got)
	}
	if strings.Contains(got, "sourceDocuments") {
		t.Errorf("Marshal = %s, want sourceDocuments omitted", got)
	}
}

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAgent, "Assistant"},
		{RoleAgentPending, "Assistant"},
		{Role("other"), "other"},
	}
	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("%q.DisplayName() = %q, want %q", tc.role, got, tc.want)
		}
	}
}

// =============================================================================
// CITATION TESTS
// =============================================================================

func TestCitation_Score(t *testing.T) {
	tests := []struct {
		name   string
		meta   map[string]any
		want   float64
		wantOK bool
	}{
		{"float", map[string]any{"score": 0.9}, 0.9, true},
		{"int", map[string]any{"score": 3}, 3, true},
		{"numeric string", map[string]any{"score": " 0.5 "}, 0.5, true},
		{"json number", map[string]any{"score": json.Number("0.25")}, 0.25, true},
		{"missing", map[string]any{"source": "x"}, 0, false},
		{"null", map[string]any{"score": nil}, 0, false},
		{"garbage", map[string]any{"score": "high"}, 0, false},
		{"nil metadata", nil, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Citation{Metadata: tc.meta}.Score()
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("Score() = (%v, %v), want (%v, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestCitation_CloneIsIndependent(t *testing.T) {
	orig := Citation{Content: "c", Metadata: map[string]any{"sourceUrl": "https://a"}}
	cp := orig.Clone()
	cp.Metadata["sourceUrl"] = "https://b"

	if orig.SourceURL() != "https://a" {
		t.Errorf("original SourceURL = %q, want unchanged", orig.SourceURL())
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_SeedAndHistory(t *testing.T) {
	const welcome = "Hi there! How can I help?"
	conv := NewConversation(welcome)

	if conv.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", conv.Len())
	}

	conv.Append(NewUserMessage("hello"))
	conv.Append(NewAgentMessage("Hi!", nil))

	history := conv.History(welcome)
	if len(history) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(history))
	}
	if history[0].Message != "hello" || history[0].Type != RoleUser {
		t.Errorf("History[0] = %+v, want user hello", history[0])
	}
	if history[1].Type != RoleAgent {
		t.Errorf("History[1].Type = %q, want %q", history[1].Type, RoleAgent)
	}
}

func TestConversation_HistoryReportsPlaceholderAsAgent(t *testing.T) {
	conv := NewConversation("welcome")
	conv.Append(NewUserMessage("hello"))
	conv.Append(NewPendingMessage())

	history := conv.History("welcome")
	if len(history) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(history))
	}
	if history[1].Type != RoleAgent {
		t.Errorf("History[1].Type = %q, want %q", history[1].Type, RoleAgent)
	}
}

func TestMessage_SettlePromotesPlaceholder(t *testing.T) {
	msg := NewPendingMessage()
	msg.Settle()
	if msg.Role != RoleAgent {
		t.Errorf("Role = %q, want %q", msg.Role, RoleAgent)
	}

	user := NewUserMessage("q")
	user.Settle()
	if user.Role != RoleUser {
		t.Errorf("Settle changed a user message to %q", user.Role)
	}
}

func TestConversation_UpdateLastOnlyTouchesLast(t *testing.T) {
	conv := NewConversation("welcome")
	conv.Append(NewUserMessage("q"))
	conv.Append(NewPendingMessage())

	conv.UpdateLast(func(m *Message) { m.AppendToken("partial") })

	msgs := conv.Messages()
	if msgs[1].Text != "q" {
		t.Errorf("earlier message changed to %q", msgs[1].Text)
	}
	if msgs[2].Text != "partial" {
		t.Errorf("last message = %q, want %q", msgs[2].Text, "partial")
	}
}

func TestConversation_MessagesReturnsCopy(t *testing.T) {
	conv := NewConversation("welcome")
	conv.Append(NewAgentMessage("a", []Citation{{Content: "c", Metadata: map[string]any{"score": 1.0}}}))

	msgs := conv.Messages()
	msgs[1].Text = "mutated"
	msgs[1].Citations[0].Metadata["score"] = 0.0

	last, _ := conv.Last()
	if last.Text != "a" {
		t.Errorf("Last().Text = %q, want %q", last.Text, "a")
	}
	if score, _ := last.Citations[0].Score(); score != 1.0 {
		t.Errorf("citation score = %v, want 1.0", score)
	}
}

func TestConversation_ResetReseeds(t *testing.T) {
	conv := NewConversation("welcome")
	conv.Append(NewUserMessage("q"))
	conv.Reset("fresh")

	msgs := conv.Messages()
	if len(msgs) != 1 || msgs[0].Text != "fresh" || msgs[0].Role != RoleAgent {
		t.Errorf("after Reset = %+v, want single welcome", msgs)
	}
}

func TestConversation_Prune(t *testing.T) {
	conv := NewConversation("welcome")
	for i := 0; i < MaxMessages+10; i++ {
		conv.Append(NewUserMessage("m"))
	}
	if conv.Len() != MaxMessages {
		t.Errorf("Len() = %d, want %d", conv.Len(), MaxMessages)
	}
	if first := conv.Messages()[0]; first.Text != "welcome" {
		t.Errorf("first message = %q, want welcome kept", first.Text)
	}
}

func TestConversation_UpdateLastEmpty(t *testing.T) {
	conv := ConversationFrom(nil)
	if conv.UpdateLast(func(*Message) {}) {
		t.Error("UpdateLast on empty log should return false")
	}
	if _, ok := conv.Last(); ok {
		t.Error("Last on empty log should return false")
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestSession_Fresh(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		saved time.Time
		want  bool
	}{
		{"one hour old", now.Add(-1 * time.Hour), true},
		{"exactly twelve hours", now.Add(-12 * time.Hour), true},
		{"thirteen hours old", now.Add(-13 * time.Hour), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession("abc", nil, tc.saved)
			if got := s.Fresh(now); got != tc.want {
				t.Errorf("Fresh() = %v, want %v (age %v)", got, tc.want, s.Age(now))
			}
		})
	}
}

func TestSession_RecordShape(t *testing.T) {
	s := NewSession("chat1", []Message{{Role: RoleAgent, Text: "hi"}}, time.UnixMilli(1700000000000))
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"chatId":"chat1","timestamp":1700000000000,"messages":[{"type":"apiMessage","message":"hi"}]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}
