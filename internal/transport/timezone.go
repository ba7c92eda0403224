// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"fmt"
	"time"
)

// Timezone formats the UTC offset of t as GMT+HH or GMT+HH:MM.
func Timezone(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	minutes := offset / 60
	hours, rem := minutes/60, minutes%60
	if rem > 0 {
		return fmt.Sprintf("GMT%s%02d:%02d", sign, hours, rem)
	}
	return fmt.Sprintf("GMT%s%02d", sign, hours)
}
