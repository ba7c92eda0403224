// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/futurebot-ai/chatwidget/internal/model"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventType names a stream event.
type EventType string

const (
	EventConnect         EventType = "connect"
	EventStart           EventType = "start"
	EventToken           EventType = "token"
	EventSourceDocuments EventType = "sourceDocuments"
	EventEnd             EventType = "end"
	EventDisconnect      EventType = "disconnect"

	eventPing EventType = "ping"
	eventPong EventType = "pong"
)

// Event is one decoded stream frame.
type Event struct {
	Type      EventType
	ClientID  string           // EventConnect
	Token     string           // EventToken
	Citations []model.Citation // EventSourceDocuments
	Err       error            // EventDisconnect
}

// Envelope is the JSON frame carried over the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// =============================================================================
// DIALER
// =============================================================================

// Dialer opens event streams against a backend host.
type Dialer struct {
	Host             string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	Header           http.Header

	logger zerolog.Logger
}

// NewDialer creates a dialer for host.
func NewDialer(host string, logger zerolog.Logger) *Dialer {
	return &Dialer{
		Host:             strings.TrimRight(host, "/"),
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     25 * time.Second,
		logger:           logger.With().Str("component", "stream").Logger(),
	}
}

// SocketURL maps the http(s) host onto its ws(s) socket endpoint.
func SocketURL(host string) (string, error) {
	u, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil {
		return "", errors.Wrap(err, "parse host")
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported host scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket"
	return u.String(), nil
}

// Connect dials the socket and waits for the connect frame that assigns
// the client id.
func (d *Dialer) Connect(ctx context.Context) (*Stream, error) {
	target, err := SocketURL(d.Host)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Summary: DefaultErrorMessage, Cause: err}
	}

	wsDialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, resp, err := wsDialer.DialContext(ctx, target, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, &Error{Kind: KindStatus, Summary: DefaultErrorMessage, Status: resp.StatusCode, Cause: err}
		}
		return nil, networkError(errors.Wrap(err, "dial socket"))
	}

	clientID, err := awaitConnect(ctx, conn, d.HandshakeTimeout)
	if err != nil {
		conn.Close()
		return nil, err
	}

	s := &Stream{
		conn:     conn,
		clientID: clientID,
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
		logger:   d.logger.With().Str("client_id", clientID).Logger(),
	}
	s.events <- Event{Type: EventConnect, ClientID: clientID}

	go s.readLoop()
	if d.PingInterval > 0 {
		go s.pingLoop(d.PingInterval)
	}
	s.logger.Debug().Str("url", target).Msg("stream connected")
	return s, nil
}

func awaitConnect(ctx context.Context, conn *websocket.Conn, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", networkError(errors.Wrap(err, "await connect frame"))
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", malformed(errors.Wrap(err, "decode connect frame"))
	}
	if EventType(env.Event) != EventConnect {
		return "", malformed(errors.Errorf("expected connect frame, got %q", env.Event))
	}
	var id string
	if err := json.Unmarshal(env.Data, &id); err != nil || id == "" {
		return "", malformed(errors.New("connect frame has no client id"))
	}
	return id, nil
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is an open event socket. Events are delivered in arrival order.
type Stream struct {
	conn     *websocket.Conn
	clientID string
	events   chan Event

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
	logger  zerolog.Logger
}

// ClientID is the id the backend assigned on connect.
func (s *Stream) ClientID() string {
	return s.clientID
}

// Events yields decoded events. The channel is closed when the socket
// closes; an unrequested close is preceded by EventDisconnect.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Disconnect closes the socket. Safe to call more than once and from any
// goroutine.
func (s *Stream) Disconnect() {
	s.once.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
}

func (s *Stream) closing() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Stream) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Stream) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closing() {
				return
			}
			s.logger.Debug().Err(err).Msg("stream read loop end")
			s.emit(Event{Type: EventDisconnect, Err: &Error{Kind: KindClosed, Summary: "stream closed", Cause: err}})
			s.once.Do(func() {
				close(s.done)
				_ = s.conn.Close()
			})
			return
		}

		ev, ok := s.decode(data)
		if !ok {
			continue
		}
		if !s.emit(ev) {
			return
		}
	}
}

func (s *Stream) decode(data []byte) (Event, bool) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn().Err(err).Msg("dropping malformed frame")
		return Event{}, false
	}

	switch t := EventType(env.Event); t {
	case EventStart, EventEnd:
		return Event{Type: t}, true
	case EventToken:
		var token string
		if err := json.Unmarshal(env.Data, &token); err != nil {
			s.logger.Warn().Err(err).Msg("dropping malformed token frame")
			return Event{}, false
		}
		return Event{Type: t, Token: token}, true
	case EventSourceDocuments:
		citations, err := decodeDocumentsJSON(env.Data)
		if err != nil {
			s.logger.Warn().Err(err).Msg("dropping malformed source documents")
			return Event{}, false
		}
		return Event{Type: t, Citations: citations}, true
	case eventPing:
		s.write(Envelope{Event: string(eventPong)})
		return Event{}, false
	case eventPong, EventConnect:
		return Event{}, false
	default:
		s.logger.Debug().Str("event", env.Event).Msg("ignoring unknown event")
		return Event{}, false
	}
}

func (s *Stream) write(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug().Err(err).Msg("stream write failed")
	}
}

func (s *Stream) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
