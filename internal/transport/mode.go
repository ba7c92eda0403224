// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultWebRequestSuffix marks hosts that only speak request mode.
const DefaultWebRequestSuffix = "lambda-url.eu-central-1.on.aws"

// Mode is how replies are delivered for a conversation.
type Mode int

const (
	// ModeRequest delivers each reply as one HTTP response.
	ModeRequest Mode = iota
	// ModeStream delivers replies as socket events.
	ModeStream
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeStream {
		return "stream"
	}
	return "request"
}

// Prober reports whether the backend streams replies.
type Prober interface {
	StreamingAvailable(ctx context.Context) (bool, error)
}

// IsWebRequestHost reports whether host ends with suffix.
func IsWebRequestHost(host, suffix string) bool {
	if suffix == "" {
		suffix = DefaultWebRequestSuffix
	}
	return strings.HasSuffix(strings.TrimRight(host, "/"), suffix)
}

// Negotiate picks the mode for host using the default web-request suffix.
func Negotiate(ctx context.Context, host string, prober Prober) Mode {
	return NegotiateWithSuffix(ctx, host, DefaultWebRequestSuffix, prober, zerolog.Nop())
}

// NegotiateWithSuffix picks the mode for host. Web-request hosts never
// stream; otherwise the probe decides and a failed probe means request mode.
func NegotiateWithSuffix(ctx context.Context, host, suffix string, prober Prober, logger zerolog.Logger) Mode {
	if IsWebRequestHost(host, suffix) || prober == nil {
		return ModeRequest
	}
	ok, err := prober.StreamingAvailable(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("streaming probe failed, using request mode")
		return ModeRequest
	}
	if ok {
		return ModeStream
	}
	return ModeRequest
}
