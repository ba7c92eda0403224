// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/futurebot-ai/chatwidget/internal/model"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the prediction client.
type ClientConfig struct {
	// Host is the backend base URL, e.g. https://bot.example.com
	Host string

	// ChatflowID selects the flow on the backend.
	ChatflowID string

	// Timeout for prediction requests (default: 120s)
	Timeout time.Duration

	// ProbeTimeout for the streaming availability check (default: 10s)
	ProbeTimeout time.Duration

	// MaxBodyBytes caps the response body read (default: 4 MiB)
	MaxBodyBytes int64
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Host:         "http://localhost:3000",
		Timeout:      120 * time.Second,
		ProbeTimeout: 10 * time.Second,
		MaxBodyBytes: 4 << 20,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the prediction backend over HTTP.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a client with default configuration for host.
func NewClient(host, chatflowID string) *Client {
	cfg := DefaultConfig()
	cfg.Host = host
	cfg.ChatflowID = chatflowID
	return NewClientWithConfig(cfg, zerolog.Nop())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config ClientConfig, logger zerolog.Logger) *Client {
	defaults := DefaultConfig()
	if config.Host == "" {
		config.Host = defaults.Host
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = defaults.ProbeTimeout
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	config.Host = strings.TrimRight(config.Host, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.With().Str("component", "transport").Logger(),
	}
}

// SetHTTPClient replaces the underlying HTTP client (used by tests).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Host returns the configured backend host.
func (c *Client) Host() string {
	return c.config.Host
}

// ChatflowID returns the configured flow id.
func (c *Client) ChatflowID() string {
	return c.config.ChatflowID
}

// PredictionURL is the endpoint questions are posted to.
func (c *Client) PredictionURL() string {
	return c.config.Host + "/api/v1/prediction/" + url.PathEscape(c.config.ChatflowID)
}

// StreamingURL is the endpoint that reports whether the flow streams.
func (c *Client) StreamingURL() string {
	return c.config.Host + "/api/v1/chatflows-streaming/" + url.PathEscape(c.config.ChatflowID)
}

// =============================================================================
// API METHODS
// =============================================================================

// Send posts a question and decodes the reply.
func (c *Client) Send(ctx context.Context, req *Request) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if req.History == nil {
		req.History = []model.HistoryItem{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, malformed(errors.Wrap(err, "encode request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PredictionURL(), bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Summary: DefaultErrorMessage, Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Msg("prediction request failed")
		return nil, networkError(errors.Wrap(err, "post prediction"))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		return nil, networkError(errors.Wrap(err, "read prediction body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("prediction rejected")
		return nil, statusError(resp.StatusCode, data)
	}

	reply, err := DecodeReply(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("malformed prediction reply")
		return nil, malformed(err)
	}

	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("citations", len(reply.Citations)).
		Msg("prediction received")
	return reply, nil
}

// StreamingAvailable asks the backend whether the flow streams tokens.
func (c *Client) StreamingAvailable(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StreamingURL(), nil)
	if err != nil {
		return false, &Error{Kind: KindNetwork, Summary: DefaultErrorMessage, Cause: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, networkError(errors.Wrap(err, "probe streaming"))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		return false, networkError(errors.Wrap(err, "read probe body"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, statusError(resp.StatusCode, data)
	}

	var probe struct {
		IsStreaming *bool `json:"isStreaming"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false, malformed(errors.Wrap(err, "decode probe"))
	}
	if probe.IsStreaming == nil {
		return false, malformed(errors.New("probe reply has no isStreaming field"))
	}
	return *probe.IsStreaming, nil
}

// statusError builds the error for a non-2xx response. A body that is a
// string (raw or JSON-encoded) is shown as is; otherwise the status line is.
func statusError(status int, body []byte) *Error {
	summary := strings.TrimSpace(string(body))
	if strings.HasPrefix(summary, `"`) {
		var s string
		if json.Unmarshal([]byte(summary), &s) == nil {
			summary = s
		}
	} else if strings.HasPrefix(summary, "{") || strings.HasPrefix(summary, "[") {
		summary = ""
	}
	if summary == "" {
		summary = strconv.Itoa(status) + ": " + http.StatusText(status)
	}
	return &Error{Kind: KindStatus, Summary: summary, Status: status}
}
