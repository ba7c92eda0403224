// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling of the terminal chat widget.
// Colors are lipgloss AdaptiveColors so they follow the light or dark
// background picked by NewTheme.
package styles
