// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/muesli/termenv"
)

// BrandURL is where the badge points.
const BrandURL = "https://futurebot.ai"

// Badge texts.
const (
	badgePrefix   = "Powered by "
	brandName     = "Futurebot.ai"
	policyLabel   = "Privacy policy"
	calendlyLabel = "Book a call"
)

// BadgeLinks are the optional parts of the badge line.
type BadgeLinks struct {
	PolicyURL   string
	CalendlyURL string
}

// Badge renders the "Powered by" line. With hyperlinks the labels become
// OSC 8 links; otherwise URLs are shown in parentheses.
func Badge(links BadgeLinks, hyperlinks bool) string {
	link := func(label, url string) string {
		if hyperlinks {
			return termenv.Hyperlink(url, label)
		}
		return label + " (" + url + ")"
	}

	parts := []string{badgePrefix + link(brandName, BrandURL)}
	if links.PolicyURL != "" {
		parts = append(parts, link(policyLabel, links.PolicyURL))
	}
	if links.CalendlyURL != "" {
		parts = append(parts, link(calendlyLabel, links.CalendlyURL))
	}
	return strings.Join(parts, "  |  ")
}
