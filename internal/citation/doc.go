// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation normalizes, ranks and filters the source documents the
// backend attaches to agent messages.
//
// The pipeline runs in a fixed order:
//
//  1. Flatten: name/value metadata lists become a flat map (transport boundary)
//  2. SortByScore: stable, descending, unscored last
//  3. DedupeByURL: first occurrence of each valid sourceUrl wins
//
// Visible is a presentation filter and never changes stored citations.
package citation
