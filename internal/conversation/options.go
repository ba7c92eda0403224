// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurebot-ai/chatwidget/internal/config"
	"github.com/futurebot-ai/chatwidget/internal/storage"
	"github.com/futurebot-ai/chatwidget/internal/transport"
	"github.com/futurebot-ai/chatwidget/internal/typing"
)

// Sender delivers a question to the backend.
type Sender interface {
	Send(ctx context.Context, req *transport.Request) (*transport.Reply, error)
}

// Stream is an open event stream.
type Stream interface {
	ClientID() string
	Events() <-chan transport.Event
	Disconnect()
}

// Connector opens event streams.
type Connector interface {
	Connect(ctx context.Context) (Stream, error)
}

// ConnectFunc adapts a function to Connector.
type ConnectFunc func(ctx context.Context) (Stream, error)

// Connect calls f.
func (f ConnectFunc) Connect(ctx context.Context) (Stream, error) {
	return f(ctx)
}

// DialerConnector opens streams with a transport.Dialer.
func DialerConnector(d *transport.Dialer) Connector {
	return ConnectFunc(func(ctx context.Context) (Stream, error) {
		s, err := d.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Options configures a conversation.
type Options struct {
	// Host decides the web-request shortcut during mode negotiation.
	Host             string
	WebRequestSuffix string

	// Key is the session storage key, see storage.Key.
	Key string

	WelcomeMessage  string
	ErrorMessage    string
	UseTimezone     bool
	ShowClearButton bool
	OverrideConfig  map[string]any

	Sender    Sender
	Prober    transport.Prober
	Connector Connector
	Store     storage.Store
	Typing    *typing.Broadcaster

	// Mode skips negotiation when set.
	Mode *transport.Mode

	// StreamGrace bounds how long a streamed turn waits for its start event
	// after the HTTP reply arrived. Zero means DefaultStreamGrace.
	StreamGrace time.Duration

	Logger zerolog.Logger
	Now    func() time.Time
}

// OptionsFromConfig fills the widget-level options from cfg. Collaborators
// (Sender, Store, Typing, ...) are left to the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Host:             cfg.Backend.Host,
		WebRequestSuffix: cfg.Backend.WebRequestSuffix,
		Key:              storage.Key(cfg.Widget.Inline(), cfg.Widget.BotID, cfg.Widget.PineconeNamespace),
		WelcomeMessage:   cfg.Widget.WelcomeMessage,
		ErrorMessage:     cfg.Widget.ErrorMessage,
		UseTimezone:      cfg.Widget.UseTimezone,
		ShowClearButton:  cfg.Widget.ShowClearButton,
		OverrideConfig:   cfg.Widget.Override,
		StreamGrace:      cfg.Backend.StreamGrace(),
	}
}

// NewFromConfig wires a conversation to the HTTP and socket transports
// described by cfg.
func NewFromConfig(cfg *config.Config, store storage.Store, flag *typing.Broadcaster, logger zerolog.Logger) (*State, error) {
	clientCfg := transport.DefaultConfig()
	clientCfg.Host = cfg.Backend.Host
	clientCfg.ChatflowID = cfg.Backend.ChatflowID
	clientCfg.Timeout = cfg.Backend.Timeout()
	clientCfg.ProbeTimeout = cfg.Backend.ProbeTimeout()
	client := transport.NewClientWithConfig(clientCfg, logger)

	opts := OptionsFromConfig(cfg)
	opts.Sender = client
	opts.Prober = client
	opts.Connector = DialerConnector(transport.NewDialer(cfg.Backend.Host, logger))
	opts.Store = store
	opts.Typing = flag
	opts.Logger = logger
	return New(opts)
}
