// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - Colored status lines for the chatwidget CLI.
//
// All commands print success, warning and error lines through these helpers
// so color handling follows ColorsEnabled in one place.

package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	mutedColor   = color.New(color.FgHiBlack)
	promptColor  = color.New(color.FgBlue, color.Bold)
	agentColor   = color.New(color.FgMagenta, color.Bold)
	linkColor    = color.New(color.FgCyan, color.Underline)
)

// PrintSuccess prints a success line to w.
func PrintSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// PrintError prints an error line to w.
func PrintError(w io.Writer, format string, args ...any) {
	errorColor.Fprintf(w, "✗ %s\n", fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning line to w.
func PrintWarning(w io.Writer, format string, args ...any) {
	warningColor.Fprintf(w, "! %s\n", fmt.Sprintf(format, args...))
}

// PrintInfo prints an informational line to w.
func PrintInfo(w io.Writer, format string, args ...any) {
	infoColor.Fprintf(w, "%s\n", fmt.Sprintf(format, args...))
}
