// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/futurebot-ai/chatwidget/internal/model"
	"github.com/futurebot-ai/chatwidget/internal/transport"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Answer is what the backend replies with.
type Answer struct {
	Text      string
	Citations []model.Citation
}

// Responder produces the answer for a request. A returned error becomes a
// 500 response with the error text as body.
type Responder func(ctx context.Context, req *transport.Request) (Answer, error)

// Config controls the dev backend.
type Config struct {
	// Addr to listen on (default: 127.0.0.1:3000)
	Addr string

	// ChatflowID, when set, is the only flow id accepted.
	ChatflowID string

	// Streaming is reported by the probe and enables socket delivery.
	Streaming bool

	// TokensPerSecond paces streamed tokens; zero streams without delay.
	TokensPerSecond float64

	// ListMetadata sends citation metadata as [{name, value}] lists.
	ListMetadata bool

	// CORS defaults to DefaultCORSConfig when AllowedOrigins is empty.
	CORS CORSConfig

	Responder Responder
	Logger    zerolog.Logger
}

// DefaultConfig returns a streaming dev backend on localhost:3000.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:3000",
		Streaming:       true,
		TokensPerSecond: 20,
		Responder:       EchoResponder,
	}
}

// EchoResponder answers with the question and a few sample citations.
func EchoResponder(_ context.Context, req *transport.Request) (Answer, error) {
	return Answer{
		Text: "You asked: " + req.Question,
		Citations: []model.Citation{
			{Content: "Getting started guide", Metadata: map[string]any{
				model.MetaSource: "https://futurebot.ai/docs/getting-started", model.MetaSourceURL: "https://futurebot.ai/docs/getting-started", model.MetaScore: 0.91,
			}},
			{Content: "Getting started guide (copy)", Metadata: map[string]any{
				model.MetaSource: "https://futurebot.ai/docs/getting-started", model.MetaSourceURL: "https://futurebot.ai/docs/getting-started", model.MetaScore: 0.87,
			}},
			{Content: "Pricing", Metadata: map[string]any{
				model.MetaSource: "https://futurebot.ai/pricing", model.MetaSourceURL: "https://futurebot.ai/pricing", model.MetaScore: 0.5,
			}},
		},
	}, nil
}

// =============================================================================
// SERVER
// =============================================================================

// Server is an in-process chat backend speaking the prediction, probe and
// socket protocols.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu       sync.Mutex
	clients  map[string]*client
	requests []transport.Request
}

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(event transport.EventType, data any) error {
	env := transport.Envelope{Event: string(event)}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return errors.Wrap(err, "encode event data")
		}
		env.Data = raw
	}
	b, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return errors.Wrap(c.conn.WriteMessage(websocket.TextMessage, b), "write event")
}

// New creates a server. Zero fields fall back to DefaultConfig.
func New(cfg Config) *Server {
	defaults := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.Responder == nil {
		cfg.Responder = defaults.Responder
	}
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  cfg.Logger.With().Str("component", "devserver").Logger(),
		clients: make(map[string]*client),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/prediction/", s.handlePrediction)
	mux.HandleFunc("/api/v1/chatflows-streaming/", s.handleProbe)
	mux.HandleFunc("/socket", s.handleSocket)

	cors := s.cfg.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors = DefaultCORSConfig()
	}
	return Chain(
		Recover(s.logger),
		RequestLogger(s.logger),
		CORS(cors),
	)(mux)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Bool("streaming", s.cfg.Streaming).Msg("dev backend listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Requests returns the prediction requests received so far.
func (s *Server) Requests() []transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transport.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Clients returns the number of connected sockets.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		_ = c.conn.Close()
		delete(s.clients, id)
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) flowAllowed(w http.ResponseWriter, r *http.Request, prefix string) bool {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || (s.cfg.ChatflowID != "" && id != s.cfg.ChatflowID) {
		http.Error(w, "chatflow "+id+" not found", http.StatusNotFound)
		return false
	}
	return true
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.flowAllowed(w, r, "/api/v1/chatflows-streaming/") {
		return
	}
	writeJSON(w, map[string]bool{"isStreaming": s.cfg.Streaming})
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.flowAllowed(w, r, "/api/v1/prediction/") {
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	var req transport.Request
	if err := json.Unmarshal(data, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	c := s.clients[req.SocketClientID]
	s.mu.Unlock()

	log := s.logger.With().Str("question", req.Question).Logger()
	answer, err := s.cfg.Responder(r.Context(), &req)
	if err != nil {
		log.Warn().Err(err).Msg("responder failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if s.cfg.Streaming && c != nil {
		if err := s.stream(r.Context(), c, answer); err != nil {
			log.Warn().Err(err).Msg("stream aborted")
		}
	}

	writeJSON(w, map[string]any{
		"text":            answer.Text,
		"sourceDocuments": s.documents(answer.Citations),
	})
	log.Debug().Bool("streamed", c != nil).Msg("prediction served")
}

func (s *Server) stream(ctx context.Context, c *client, answer Answer) error {
	var limiter *rate.Limiter
	if s.cfg.TokensPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.TokensPerSecond), 1)
	}

	if err := c.send(transport.EventStart, nil); err != nil {
		return err
	}
	for _, token := range Tokenize(answer.Text) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return errors.Wrap(err, "pace tokens")
			}
		}
		if err := c.send(transport.EventToken, token); err != nil {
			return err
		}
	}
	if len(answer.Citations) > 0 {
		if err := c.send(transport.EventSourceDocuments, s.documents(answer.Citations)); err != nil {
			return err
		}
	}
	return c.send(transport.EventEnd, nil)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("upgrade failed")
		return
	}
	c := &client{id: uuid.NewString(), conn: conn}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	log := s.logger.With().Str("client_id", c.id).Str("remote", conn.RemoteAddr().String()).Logger()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		_ = conn.Close()
		log.Debug().Msg("socket disconnected")
	}()

	if err := c.send(transport.EventConnect, c.id); err != nil {
		log.Debug().Err(err).Msg("connect frame failed")
		return
	}
	log.Debug().Msg("socket connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env transport.Envelope
		if json.Unmarshal(data, &env) == nil && env.Event == "ping" {
			_ = c.send("pong", nil)
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

type nameValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (s *Server) documents(citations []model.Citation) []map[string]any {
	docs := make([]map[string]any, 0, len(citations))
	for _, c := range citations {
		var meta any = c.Metadata
		if s.cfg.ListMetadata {
			list := make([]nameValue, 0, len(c.Metadata))
			for _, k := range sortedKeys(c.Metadata) {
				list = append(list, nameValue{Name: k, Value: c.Metadata[k]})
			}
			meta = list
		}
		docs = append(docs, map[string]any{"pageContent": c.Content, "metadata": meta})
	}
	return docs
}

// Tokenize splits text into word fragments that concatenate back to text.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return strings.SplitAfter(text, " ")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
