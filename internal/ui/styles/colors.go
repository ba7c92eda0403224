// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Brand - Header, badge link, send hint
var Brand = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// Accent - Citation chips, clear control
var Accent = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Typing indicator
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// MESSAGE BUBBLE COLORS
// =============================================================================

// User bubble - Blue tones
var UserBubbleBg = lipgloss.AdaptiveColor{Light: "#3B81F6", Dark: "#1D4ED8"}
var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#E0F2FE"}

// Agent bubble - Neutral grey
var AgentBubbleBg = lipgloss.AdaptiveColor{Light: "#F7F8FF", Dark: "#2A2D33"}
var AgentBubbleFg = lipgloss.AdaptiveColor{Light: "#303235", Dark: "#E6E6E6"}
var AgentBubbleBorder = lipgloss.AdaptiveColor{Light: "#D4D4D8", Dark: "#45475A"}
