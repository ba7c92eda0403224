// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/muesli/termenv"
)

func TestNewThemeForcedModes(t *testing.T) {
	dark := NewTheme(ModeDark)
	if !dark.IsDark {
		t.Error("dark theme should report IsDark")
	}
	light := NewTheme("LIGHT")
	if light.IsDark {
		t.Error("light theme should not report IsDark")
	}
}

func TestGlamourStyle(t *testing.T) {
	tests := []struct {
		dark    bool
		profile termenv.Profile
		want    string
	}{
		{true, termenv.TrueColor, "dark"},
		{false, termenv.ANSI256, "light"},
		{true, termenv.Ascii, "notty"},
	}
	for _, tt := range tests {
		th := &Theme{IsDark: tt.dark, ColorProfile: tt.profile}
		if got := th.GlamourStyle(); got != tt.want {
			t.Errorf("GlamourStyle(dark=%v, profile=%v) = %q, want %q", tt.dark, tt.profile, got, tt.want)
		}
	}
}

func TestStylesRender(t *testing.T) {
	th := NewTheme(ModeLight)
	for name, s := range map[string]string{
		"user":  th.UserBubble.Render("hi"),
		"agent": th.AgentBubble.Render("hello"),
		"chip":  th.CitationChip.Render("/docs"),
		"badge": th.Badge.Render("Powered by"),
	} {
		if s == "" {
			t.Errorf("%s style rendered nothing", name)
		}
	}
}
